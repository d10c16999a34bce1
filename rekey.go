package slackfs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ReencodeOptions controls Store.Reencode
type ReencodeOptions struct {
	// NewPassword encodes the rewritten chain. Empty keeps the old password.
	NewPassword string

	// NewCodec replaces the store's codec. Nil keeps the current one.
	NewCodec *Codec

	// DryRun decodes and plans the new chain without writing any slot
	DryRun bool
}

// Reencode reads the stored stream with oldPassword and writes it back
// under a new password, codec, or both. The decoded stream is carried over
// byte for byte, so it works for trees and raw streams alike.
func (s *Store) Reencode(oldPassword string, opts ReencodeOptions) error {
	index, err := s.Index()
	if err != nil {
		return err
	}

	stream, err := s.pipeline.LoadBytes(s.config.RootSlot, oldPassword, index)
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	newPassword := opts.NewPassword
	if newPassword == "" {
		newPassword = oldPassword
	}
	target := s.pipeline
	if opts.NewCodec != nil {
		target = NewPipeline(opts.NewCodec, s.accessor, s.config.logger())
	}

	log := s.log.WithFields(logrus.Fields{
		"bytes":   len(stream),
		"dry_run": opts.DryRun,
	})

	if opts.DryRun {
		encoded, err := target.Codec.EncodeBytes(stream, newPassword)
		if err != nil {
			return err
		}
		links, err := target.Chains.Plan(encoded, s.config.RootSlot, index)
		if err != nil {
			return err
		}
		log.WithField("length", len(links)).Info("re-encode would succeed")
		return nil
	}

	if err := target.SaveBytes(stream, s.config.RootSlot, newPassword, index); err != nil {
		return fmt.Errorf("failed to rewrite store: %w", err)
	}
	if opts.NewCodec != nil {
		s.codec = opts.NewCodec
		s.pipeline = target
		s.config.Codec = opts.NewCodec.Config()
	}
	log.Info("store re-encoded")
	return nil
}

// Rekey re-encrypts the store under newPassword
func (s *Store) Rekey(oldPassword, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	return s.Reencode(oldPassword, ReencodeOptions{NewPassword: newPassword})
}

// MigrateCodec rewrites the store with codec, keeping the password
func (s *Store) MigrateCodec(codec *Codec, password string) error {
	if codec == nil {
		return fmt.Errorf("codec cannot be nil")
	}
	return s.Reencode(password, ReencodeOptions{NewCodec: codec})
}
