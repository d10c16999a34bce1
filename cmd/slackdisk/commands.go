package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/absfs/slackfs"
)

type command struct {
	usage   string
	help    string
	minArgs int
	maxArgs int // -1 for unbounded
	run     func(a *app, args []string) error
}

var commandOrder = []string{
	"index", "total", "init", "ls", "mkdir", "rmdir", "put", "get", "cat", "rm",
	"putstr", "save-string", "load-string", "slack", "rekey", "genconfig",
}

var commands = map[string]command{
	"index":       {"", "scan candidate roots and list usable slots", 0, 0, cmdIndex},
	"total":       {"", "show usable slack capacity", 0, 0, cmdTotal},
	"init":        {"", "create an empty hidden filesystem", 0, 0, cmdInit},
	"ls":          {"[dir]", "list a directory", 0, 1, cmdLs},
	"mkdir":       {"<dir>", "create a directory", 1, 1, cmdMkdir},
	"rmdir":       {"<dir>", "remove an empty directory", 1, 1, cmdRmdir},
	"put":         {"<host-path> <path>", "copy a host file or directory in", 2, 2, cmdPut},
	"get":         {"<path> <host-path>", "copy a file or directory out", 2, 2, cmdGet},
	"cat":         {"<file>", "print a file", 1, 1, cmdCat},
	"rm":          {"<file>", "remove a file", 1, 1, cmdRm},
	"putstr":      {"<file> <text>", "create a file holding text", 2, 2, cmdPutstr},
	"save-string": {"[text]", "store raw text (stdin when omitted)", 0, 1, cmdSaveString},
	"load-string": {"", "print raw text stored with save-string", 0, 0, cmdLoadString},
	"slack":       {"get|put|clean <file> [text]", "access one file's slack directly", 2, 3, cmdSlack},
	"rekey":       {"", "re-encrypt under --new-password", 0, 0, cmdRekey},
	"genconfig":   {"", "print a config with fresh salt and nonce", 0, 0, cmdGenconfig},
}

func (a *app) accessor() slackfs.SlotAccessor {
	if a.newAccessor != nil {
		return a.newAccessor(a.config, a.log)
	}
	if a.emulate {
		return slackfs.NewEmulatedAccessor(a.host, a.config.BlockSize, slackfs.WithAccessorLogger(a.log))
	}
	return slackfs.NewBmapAccessor(a.host, a.config.BmapPath, slackfs.WithAccessorLogger(a.log))
}

func (a *app) openStore() (*slackfs.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := slackfs.New(a.accessor(), a.config)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

func (a *app) requirePassword() error {
	if a.password == "" {
		return fmt.Errorf("no password: use --password or set SLACKDISK_PASSWORD")
	}
	return nil
}

func (a *app) loadTree() (*slackfs.Store, *slackfs.Tree, error) {
	if err := a.requirePassword(); err != nil {
		return nil, nil, err
	}
	store, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	tree, err := store.LoadTree(a.password)
	if err != nil {
		return nil, nil, err
	}
	return store, tree, nil
}

// mutate loads the tree, applies fn and saves the result
func (a *app) mutate(fn func(*slackfs.Tree) error) error {
	store, tree, err := a.loadTree()
	if err != nil {
		return err
	}
	if err := fn(tree); err != nil {
		return err
	}
	return store.SaveTree(tree, a.password)
}

func cmdIndex(a *app, _ []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	index, err := store.Rebuild()
	if err != nil {
		return err
	}
	for _, slot := range index.Slots() {
		fmt.Fprintf(a.stdout, "%s\t%d\t%d\t%s\n", slot.ID, slot.LastModified, slot.Capacity, slot.Path)
	}
	fmt.Fprintln(a.stdout, index.Summary())
	return nil
}

func cmdTotal(a *app, _ []string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	summary, err := store.Total()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, summary)
	return nil
}

func cmdInit(a *app, _ []string) error {
	if err := a.requirePassword(); err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	_, err = store.Init(a.password)
	return err
}

func cmdLs(a *app, args []string) error {
	dir := "/"
	if len(args) > 0 {
		dir = args[0]
	}
	_, tree, err := a.loadTree()
	if err != nil {
		return err
	}
	entries, err := tree.List(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir {
			fmt.Fprintf(a.stdout, "d %8s  %s/\n", "-", e.Name)
			continue
		}
		fmt.Fprintf(a.stdout, "- %8s  %s\n", humanize.IBytes(uint64(e.Size)), e.Name)
	}
	return nil
}

func cmdMkdir(a *app, args []string) error {
	return a.mutate(func(t *slackfs.Tree) error { return t.Mkdir(args[0]) })
}

func cmdRmdir(a *app, args []string) error {
	return a.mutate(func(t *slackfs.Tree) error { return t.Rmdir(args[0]) })
}

func cmdRm(a *app, args []string) error {
	return a.mutate(func(t *slackfs.Tree) error { return t.Remove(args[0]) })
}

func cmdPutstr(a *app, args []string) error {
	return a.mutate(func(t *slackfs.Tree) error { return t.WriteFile(args[0], []byte(args[1])) })
}

func cmdPut(a *app, args []string) error {
	return a.mutate(func(t *slackfs.Tree) error { return t.ImportFrom(a.host, args[0], args[1]) })
}

func cmdGet(a *app, args []string) error {
	_, tree, err := a.loadTree()
	if err != nil {
		return err
	}
	return tree.ExportTo(a.host, args[0], args[1])
}

func cmdCat(a *app, args []string) error {
	_, tree, err := a.loadTree()
	if err != nil {
		return err
	}
	data, err := tree.ReadFile(args[0])
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(data)
	return err
}

func cmdSaveString(a *app, args []string) error {
	if err := a.requirePassword(); err != nil {
		return err
	}
	var data []byte
	if len(args) > 0 {
		data = []byte(args[0])
	} else {
		var err error
		if data, err = io.ReadAll(a.stdin); err != nil {
			return err
		}
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	return store.SaveBytes(data, a.password)
}

func cmdLoadString(a *app, _ []string) error {
	if err := a.requirePassword(); err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	data, err := store.LoadBytes(a.password)
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(data)
	return err
}

func cmdSlack(a *app, args []string) error {
	mode, file := args[0], args[1]
	acc := a.accessor()
	switch mode {
	case "get":
		data, err := acc.Read(file)
		if err != nil {
			return err
		}
		capacity, err := acc.Capacity(file)
		if err != nil {
			return err
		}
		a.log.WithFields(logrus.Fields{"file": file, "capacity": capacity}).Info("slack read")
		_, err = a.stdout.Write(data)
		return err
	case "put":
		var data []byte
		if len(args) > 2 {
			data = []byte(args[2])
		} else {
			var err error
			if data, err = io.ReadAll(a.stdin); err != nil {
				return err
			}
		}
		if err := acc.Wipe(file); err != nil {
			return err
		}
		return acc.Write(file, data)
	case "clean":
		return acc.Wipe(file)
	default:
		return fmt.Errorf("unknown slack mode %q: want get, put or clean", mode)
	}
}

func cmdRekey(a *app, _ []string) error {
	if err := a.requirePassword(); err != nil {
		return err
	}
	if a.newPassword == "" {
		return fmt.Errorf("no new password: use --new-password or set SLACKDISK_NEW_PASSWORD")
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	return store.Rekey(a.password, a.newPassword)
}

func cmdGenconfig(a *app, _ []string) error {
	cfg := slackfs.DefaultConfig()
	if err := slackfs.GenerateCodecSecrets(&cfg.Codec); err != nil {
		return err
	}
	out, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.stdout, strings.TrimRight(string(out), "\n")+"\n")
	return err
}
