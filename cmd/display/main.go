package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"backend-tiket/internal/config"
	"backend-tiket/internal/models"
	"backend-tiket/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		server   string
		branchID string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "display",
		Short: "Show the called number for a branch, reconnecting when the server drops",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := config.NewLogger(logLevel, "console")
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			sess := session.New(feedURL(server, branchID), session.NewWSDialer(),
				session.WithLogger(logger),
				session.OnState(func(st session.State) {
					fmt.Fprintf(out, "[%s]\n", st)
				}),
				session.OnEvent(func(ev models.Event, b session.Board) {
					fmt.Fprintln(out, render(ev, b))
				}),
			)

			if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("session ended", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", config.GetEnv("DISPLAY_SERVER", "ws://localhost:8080"), "server base URL")
	cmd.Flags().StringVar(&branchID, "branch", config.GetEnv("DISPLAY_BRANCH", ""), "branch to follow (empty for all)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level")
	return cmd
}

func feedURL(server, branchID string) string {
	u := strings.TrimRight(server, "/") + "/ws/queue"
	if branchID != "" {
		u += "?branchId=" + branchID
	}
	return u
}

func render(ev models.Event, b session.Board) string {
	switch ev.Kind {
	case models.EventNewTicket:
		return fmt.Sprintf("Nomor %d silakan ke loket (%s) | menunggu: %d | sebelumnya: %v",
			b.Current, ev.BranchID, b.WaitingCount, b.History)
	case models.EventRecall:
		return fmt.Sprintf("Panggilan ulang: nomor %d (%s)", ev.Ticket.Number, ev.BranchID)
	default:
		return fmt.Sprintf("Menunggu: %d (%s)", b.WaitingCount, ev.BranchID)
	}
}
