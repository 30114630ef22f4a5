package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	l3agi "github.com/psyuktha/L3AGI"
	"github.com/psyuktha/L3AGI/engine/langchain"
	"github.com/psyuktha/L3AGI/observer"
)

func newChatCommand(a *app) *cobra.Command {
	var (
		sessionID  string
		sender     string
		voiceURL   string
		preContext string
	)
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Ask the configured agent one question and stream its final answer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prompt string
			if len(args) == 1 {
				prompt = args[0]
			}
			if prompt == "" && voiceURL == "" {
				return errors.New("a prompt or --voice-url is required")
			}
			if sessionID == "" {
				sessionID = l3agi.NewID()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// 1. Observability
			inst, stopObserver, err := a.instruments(ctx)
			if err != nil {
				return err
			}
			defer stopObserver()

			// 2. Store
			st, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			// 3. Memory, delivery, voice
			opts, cleanup, err := a.agentOptions(ctx, inst)
			if err != nil {
				return err
			}
			defer cleanup()
			opts = append(opts, l3agi.WithHistory(st), l3agi.WithRunLogs(st))

			// 4. Engine
			factory := langchain.Factory(nil, langchain.WithLogger(a.logger))
			if inst != nil {
				factory = observer.WrapFactory(factory, inst)
			}

			// 5. Record the question
			human := l3agi.NewHumanMessage(sessionID, prompt, sender, voiceURL)
			if err := st.StoreMessage(ctx, human); err != nil {
				return err
			}

			// 6. Run
			agent := l3agi.NewConversationalAgent(sessionID, sender, factory, opts...)
			out := make(chan string)
			done := make(chan struct{})
			printer := &replyPrinter{w: cmd.OutOrStdout()}
			go func() {
				defer close(done)
				printer.consume(out)
			}()
			msg, err := agent.Run(ctx, l3agi.RunRequest{
				Settings:            a.cfg.AccountSettings(),
				VoiceSettings:       a.cfg.VoiceSettings(),
				Agent:               a.cfg.AgentWithConfigs(),
				Prompt:              prompt,
				VoiceURL:            voiceURL,
				HumanMessageID:      human.ID,
				PreRetrievedContext: preContext,
			}, out)
			<-done
			printer.finish(msg)
			if err != nil {
				return err
			}
			a.logger.Debug("reply stored", "session_id", sessionID, "message_id", msg.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Chat session id (default: a new session)")
	cmd.Flags().StringVar(&sender, "sender", "Human", "Name of the person asking")
	cmd.Flags().StringVar(&voiceURL, "voice-url", "", "Recorded question to transcribe instead of a text prompt")
	cmd.Flags().StringVar(&preContext, "context", "", "Pre-retrieved context added to the system message")
	return cmd
}

// replyPrinter writes the answer fragments as they stream. When none were
// streamed, which happens when the marker arrives in fewer than three
// fragments, the stored reply is printed instead.
type replyPrinter struct {
	w        io.Writer
	streamed bool
}

func (p *replyPrinter) consume(fragments <-chan string) {
	for f := range fragments {
		p.streamed = true
		fmt.Fprint(p.w, f)
	}
}

func (p *replyPrinter) finish(msg l3agi.ChatMessage) {
	if !p.streamed {
		fmt.Fprint(p.w, msg.Content)
	}
	fmt.Fprintln(p.w)
	if msg.VoiceURL != "" {
		fmt.Fprintf(p.w, "audio: %s\n", msg.VoiceURL)
	}
}
