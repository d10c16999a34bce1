// Package slackfs hides a password-protected byte stream in the slack space
// of ordinary files: the unused tail of each file's last allocated block.
// Nothing is written to the files' visible contents and no container file or
// partition is created.
//
// # Overview
//
// A store is a chain of fragments. The first fragment lives in the slack of
// a well-known root file; every fragment names the slot holding the next
// one:
//
//	<pointer>:<payload>
//
// The pointer is the next slot's identifier (its inode number on real
// filesystems) and is empty on the last fragment. Only the first ':' splits
// pointer from payload.
//
// Slots come from a SlotIndex, built by scanning candidate directories for
// files that have not been modified for a number of days. Slots are used
// least recently modified first, larger ones first among equals.
//
// # Layers
//
//   - SlotAccessor reads, writes and wipes one file's slack. BmapAccessor
//     drives the bmap tool; EmulatedAccessor emulates slack over any
//     absfs.FileSystem.
//   - SlotIndex discovers and ranks slots.
//   - ChainStore splits a stream across slots and joins it back.
//   - Codec serializes (CBOR), compresses, encrypts and base64-encodes.
//   - Pipeline combines a Codec and a ChainStore.
//   - Store owns the index and persists a Tree, the hidden filesystem.
//
// # Basic Usage
//
//	cfg := slackfs.DefaultConfig()
//	accessor := slackfs.NewBmapAccessor(slackfs.NewOSFileSystem("/"), cfg.BmapPath)
//
//	store, err := slackfs.New(accessor, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tree := slackfs.NewTree()
//	tree.WriteFile("/notes.txt", []byte("hidden in the slack"))
//	if err := store.SaveTree(tree, password); err != nil {
//	    log.Fatal(err)
//	}
//
// # Security Considerations
//
// The default codec settings reproduce the legacy slackdisk format: a fixed
// salt and a fixed AES-CTR counter block. Every save under one password
// reuses the same keystream, so two saves reveal the XOR of their
// compressed plaintexts, and identical payloads encode identically. Use
// GenerateCodecSecrets for new stores. There is no authentication tag; a
// wrong password is only noticed when decompression fails.
//
// # Failure Model
//
// The index is a snapshot. Modifying, moving or deleting a chain member
// breaks the chain (ErrBrokenChain on load). A failed save may leave a
// partial chain behind; re-index and save again. A store that does not fit
// fails with ErrInsufficientCapacity before any slot is touched.
package slackfs
