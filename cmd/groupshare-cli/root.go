package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dalemusser/groupshare/internal/client"
	"github.com/spf13/cobra"
)

type options struct {
	server      string
	store       string
	sessionFile string
	account     string
}

// storeFactory opens the session store the flags select.
type storeFactory func(o *options) (client.SessionStore, error)

func defaultStore(o *options) (client.SessionStore, error) {
	switch o.store {
	case "keyring":
		return client.NewKeyringStore(o.account), nil
	case "file":
		path := o.sessionFile
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("locate config dir: %w", err)
			}
			path = filepath.Join(dir, "groupshare", "session.yaml")
		}
		return client.NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("unknown --store %q (want file or keyring)", o.store)
	}
}

func newRootCmd(stores storeFactory) *cobra.Command {
	o := &options{}
	server := os.Getenv("GROUPSHARE_SERVER_URL")
	if server == "" {
		server = "http://localhost:8080"
	}

	root := &cobra.Command{
		Use:           "groupshare-cli",
		Short:         "Sign in to groupshare and act within one group",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.server, "server", server, "Server base URL (env GROUPSHARE_SERVER_URL)")
	root.PersistentFlags().StringVar(&o.store, "store", "file", "Session store: file or keyring")
	root.PersistentFlags().StringVar(&o.sessionFile, "session-file", "", "Session file for --store=file (default: user config dir)")
	root.PersistentFlags().StringVar(&o.account, "account", "default", "Keychain account for --store=keyring")

	open := func() (*client.Client, error) {
		store, err := stores(o)
		if err != nil {
			return nil, err
		}
		return client.New(o.server, store)
	}

	root.AddCommand(
		newLoginCmd(open),
		newVerifyCmd(open),
		newWhoamiCmd(open),
		newSwitchCmd(open),
		newResolveCmd(open),
		newCreateGroupCmd(open),
		newInviteCmd(open),
		newLogoutCmd(open),
	)
	return root
}
