package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/conversation"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/transcript"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/ui"
)

var (
	askCopy    bool
	askNew     bool
	askApprove bool
	askPlain   bool
)

func init() {
	askCmd.Flags().BoolVar(&askCopy, "copy", false, "copy the final answer to the clipboard")
	askCmd.Flags().BoolVar(&askNew, "new", false, "start a new conversation first")
	askCmd.Flags().BoolVarP(&askApprove, "yes", "y", false, "approve every permission prompt")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "print plain text instead of markdown")
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Send one prompt and print the transcript when the turn ends",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")
		if strings.TrimSpace(prompt) == "" {
			return conversation.ErrEmptyPrompt
		}
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

		completion := transcript.Completion{ToolName: cfg.Completion.ToolName, ResultField: cfg.Completion.ResultField}
		store := conversation.NewStore(conversation.WithLogger(log), conversation.WithCompletion(completion))
		status := &conversation.SessionStatus{Mode: cfg.Display.Mode}

		if askNew {
			for _, a := range store.NewConversation() {
				if err := client.Send(a); err != nil {
					return err
				}
			}
		}

		turn := &conversation.Turn{
			Conn:   client,
			Store:  store,
			Router: conversation.NewRouter(store, status, log),
			Policy: conversation.DenyAll,
		}
		if askApprove {
			turn.Policy = conversation.ApproveAll
		}
		runErr := turn.Run(prompt)

		r := ui.NewRenderer(ui.Options{
			Width:           100,
			Markdown:        cfg.Display.Markdown && !askPlain,
			CompactApproved: cfg.Display.CompactApproved,
			Completion:      completion,
		})
		fmt.Println(r.Render(store.Snapshot()))

		if askCopy {
			if answer, ok := store.LastAnswer(); ok {
				if err := clipboard.WriteAll(answer); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: could not copy to clipboard: %v\n", err)
				} else {
					fmt.Fprintln(os.Stderr, "Answer copied to clipboard!")
				}
			}
		}
		return runErr
	},
}
