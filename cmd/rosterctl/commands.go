package main

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// --- Login ---

func newLoginCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a JWT session token",
		Long: `Logs in to the server and prints the token response. Export the
token as ROSTER_TOKEN (or pass --token) for subsequent commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().post("/api/v1/auth/login", map[string]string{
				"username": username,
				"password": password,
			})
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.MarkFlagRequired("password")
	return cmd
}

// --- Persona commands ---

func newPersonaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Inspect the loaded persona catalog",
	}
	cmd.AddCommand(newPersonaListCommand())
	cmd.AddCommand(newPersonaShowCommand())
	return cmd
}

func newPersonaListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List personas in the current catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/personas", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
}

func newPersonaShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single persona definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/personas/"+args[0], nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
}

// --- Dispatch commands ---

func newDispatchCommand() *cobra.Command {
	var hints []string
	cmd := &cobra.Command{
		Use:   "dispatch <task text>",
		Short: "Dispatch a task to the best-matching persona",
		Example: `  rosterctl dispatch "Refactor this React component into hooks"
  rosterctl dispatch "Fix the flaky pipeline" --hint ci --hint docker`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := map[string]interface{}{
				"text": strings.Join(args, " "),
			}
			if len(hints) > 0 {
				task["hints"] = hints
			}
			data, err := newClient().post("/api/v1/dispatch", task)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&hints, "hint", nil, "Explicit capability hint (repeatable)")
	return cmd
}

func newScoresCommand() *cobra.Command {
	var hints []string
	cmd := &cobra.Command{
		Use:   "scores <task text>",
		Short: "Show per-persona match scores for a task without dispatching",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := map[string]interface{}{
				"text": strings.Join(args, " "),
			}
			if len(hints) > 0 {
				task["hints"] = hints
			}
			data, err := newClient().post("/api/v1/scores", task)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&hints, "hint", nil, "Explicit capability hint (repeatable)")
	return cmd
}

// --- Registry commands ---

func newRegistryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the registry lifecycle",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show catalog version, persona count and load time",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/registry/status", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Reload the persona catalog from its source",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().post("/api/v1/registry/reload", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	})
	return cmd
}

// --- Event commands ---

func newEventCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Observe registry events",
	}

	var eventType string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if eventType != "" {
				params.Set("type", eventType)
			}
			data, err := newClient().get("/api/v1/events", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	listCmd.Flags().StringVar(&eventType, "type", "", "Filter by event type (e.g. persona.selected)")
	cmd.AddCommand(listCmd)

	var streamType string
	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Stream events live (SSE)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/events/stream"
			if streamType != "" {
				path += "?type=" + url.QueryEscape(streamType)
			}
			return newClient().streamSSE(path)
		},
	}
	streamCmd.Flags().StringVar(&streamType, "type", "", "Filter by event type")
	cmd.AddCommand(streamCmd)

	return cmd
}

// --- Health ---

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/health", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
}
