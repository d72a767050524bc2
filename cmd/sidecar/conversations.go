package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/conversation"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/ui"
)

func init() {
	rootCmd.AddCommand(conversationsCmd)
}

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List the host's conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, closer, err := openLogger(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		client, err := dialer(ctx, cfg.Host, log)()
		if err != nil {
			return err
		}
		defer client.Close()

		store := conversation.NewStore(conversation.WithLogger(log))
		list, err := conversation.ListConversations(client, conversation.NewRouter(store, &conversation.SessionStatus{}, log))
		if err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Println("No conversations yet")
			return nil
		}

		fmt.Printf("  %-38s %-17s %5s  %s\n", "ID", "UPDATED", "MSGS", "PREVIEW")
		for _, s := range list {
			marker := " "
			if s.ID == store.CurrentID() {
				marker = "*"
			}
			fmt.Printf("%s %-38s %-17s %5d  %s\n",
				marker,
				s.ID,
				s.UpdatedAt.Local().Format("2006-01-02 15:04"),
				s.MessageCount,
				ui.Truncate(s.Preview, 60),
			)
		}
		return nil
	},
}
