package main

import (
	"fmt"
	"io"

	"github.com/dalemusser/groupshare/internal/client"
	"github.com/spf13/cobra"
)

type opener func() (*client.Client, error)

func newLoginCmd(open opener) *cobra.Command {
	var groupID, email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Email a sign-in link for a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			if err := c.SendLoginLink(cmd.Context(), groupID, email); err != nil {
				return fmt.Errorf("send login link: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "If that email belongs to the group, a sign-in link is on its way.")
			return nil
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "Group ID")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newVerifyCmd(open opener) *cobra.Command {
	var token, name string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Redeem the token from a sign-in or invite link",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			l, err := c.Verify(cmd.Context(), token, name)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			if l.NeedsName {
				fmt.Fprintf(cmd.OutOrStdout(), "Invite for %s needs a display name; run verify again with --name.\n", l.Email)
				return nil
			}
			printLanding(cmd.OutOrStdout(), l)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token from the link")
	cmd.Flags().StringVar(&name, "name", "", "Display name (new identities from an invite)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newWhoamiCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and their groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			me, err := c.Me(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", me.User.Name, me.User.Email)
			for _, g := range me.Groups {
				mark := " "
				if g.ID == me.CurrentGroup.ID {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s  %s (%s)\n", mark, g.ID, g.Name, g.Role)
			}
			return nil
		},
	}
}

func newSwitchCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "switch GROUP_ID",
		Short: "Make another group the active group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			// Without an access credential only the refresh cookie can pick a group.
			s, err := c.Session()
			if err != nil {
				return err
			}
			if s.AccessToken == "" {
				err = c.SelectGroup(cmd.Context(), args[0])
			} else {
				err = c.SwitchGroup(cmd.Context(), args[0])
			}
			if err != nil {
				return fmt.Errorf("switch group: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active group: %s\n", args[0])
			return nil
		},
	}
}

func newResolveCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Show where the session lands now",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			l, err := c.Resolve(cmd.Context())
			if err != nil {
				return err
			}
			printLanding(cmd.OutOrStdout(), l)
			return nil
		},
	}
}

func newCreateGroupCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "create-group NAME",
		Short: "Create a group you own and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			g, err := c.CreateGroup(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("create group: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", g.Name, g.ID)
			return nil
		},
	}
}

func newInviteCmd(open opener) *cobra.Command {
	var email, role, name string
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite someone into the active group",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			exp, err := c.SendInvite(cmd.Context(), email, role, name)
			if err != nil {
				return fmt.Errorf("invite: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invite sent to %s; the link expires %s.\n", email, exp.Local().Format("15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&role, "role", "member", "Role: member or admin")
	cmd.Flags().StringVar(&name, "name", "", "Display name for a new identity")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func printLanding(out io.Writer, l client.Landing) {
	if l.User != nil {
		fmt.Fprintf(out, "Signed in as %s <%s>\n", l.User.Name, l.User.Email)
	}
	switch {
	case l.Group != nil:
		fmt.Fprintf(out, "Active group: %s (%s, %s)\n", l.Group.Name, l.Group.ID, l.Group.Role)
	case len(l.Groups) == 0:
		fmt.Fprintln(out, "You are not in any group yet; try create-group.")
	default:
		fmt.Fprintln(out, "Choose a group with switch:")
		for _, g := range l.Groups {
			fmt.Fprintf(out, "  %s  %s (%s)\n", g.ID, g.Name, g.Role)
		}
	}
}
