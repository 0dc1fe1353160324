package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"healthwatch/internal/app"
	"healthwatch/internal/storage"
)

func parseChatID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("chat id %q: must be an integer", raw)
	}
	return id, nil
}

func newSubscribeCmd(g *globals) *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:   "subscribe <chat-id> <region>",
		Short: "Subscribe a chat to a region.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			region := args[1]
			return g.withStores(cmd.Context(), func(s *app.Stores) error {
				if create {
					if _, err := s.Storage.EnsureRegion(cmd.Context(), region); err != nil {
						return err
					}
				}
				_, created, err := s.Storage.Subscribe(cmd.Context(), chatID, region)
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("unknown region %q (see `healthwatch regions`, or pass --create)", region)
				}
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "chat %d subscribed to %s\n", chatID, region)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "chat %d was already subscribed to %s\n", chatID, region)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "create the region if it is not known yet")
	return cmd
}

func newUnsubscribeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe <chat-id> <region>",
		Short: "Remove a chat's subscription to a region.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return g.withStores(cmd.Context(), func(s *app.Stores) error {
				err := s.Storage.Unsubscribe(cmd.Context(), chatID, args[1])
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("chat %d is not subscribed to %q", chatID, args[1])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "chat %d unsubscribed from %s\n", chatID, args[1])
				return nil
			})
		},
	}
}

func newSubscriptionsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "subscriptions <chat-id>",
		Short: "List the regions a chat is subscribed to.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseChatID(args[0])
			if err != nil {
				return err
			}
			return g.withStores(cmd.Context(), func(s *app.Stores) error {
				subs, err := s.Storage.SubscriptionsOf(cmd.Context(), chatID)
				if err != nil {
					return err
				}
				t := newTable(cmd)
				t.AppendHeader(table.Row{"Region"})
				for _, sub := range subs {
					t.AppendRow(table.Row{sub.Region})
				}
				t.Render()
				return nil
			})
		},
	}
}
