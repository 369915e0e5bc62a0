package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthurdotwork/forumlive/cmd"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		slog.DebugContext(ctx, "received signal, initiating shutdown")
		cancel()
	}()

	if err := rootCommand(ctx).ExecuteContext(ctx); err != nil {
		slog.ErrorContext(ctx, "error running command", "error", err)
		os.Exit(1)
	}
}

func rootCommand(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "forumlive",
		Short:         "Real-time gateway for the forum",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to a config file (yaml, json or toml)")

	server := &cobra.Command{
		Use:   "server",
		Short: "Serve websocket clients and route forum events to them",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.Server(ctx, c)
		},
	}

	client := &cobra.Command{
		Use:   "client",
		Short: "Connect to a gateway, join rooms and print what it pushes",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.Client(ctx, c)
		},
	}
	client.Flags().String("url", "ws://localhost:8080/ws", "gateway websocket url")
	client.Flags().String("token", "", "bearer token")
	client.Flags().StringSlice("room", nil, "room to join, as kind:id (repeatable)")
	_ = client.MarkFlagRequired("token")

	token := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token for a user",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.Token(c)
		},
	}
	token.Flags().String("user", "", "user id (uuid)")
	_ = token.MarkFlagRequired("user")

	root.AddCommand(server, client, token)

	return root
}
