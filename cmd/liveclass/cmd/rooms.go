package cmd

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edumesh/liveclass/internal/auth"
	"github.com/edumesh/liveclass/internal/config"
	"github.com/edumesh/liveclass/internal/store"
	"github.com/edumesh/liveclass/internal/ui"
)

var (
	flagRoomsName     string
	flagRoomsUser     string
	flagRoomsRole     string
	flagRoomsDomain   string
	flagRoomsInsecure bool
	flagRoomsSecret   string
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Manage classroom rooms on the server",
}

var roomsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, token, err := roomsSession()
		if err != nil {
			return err
		}

		var rooms []store.Room
		if err := apiRequest(cfg, token, http.MethodGet, "/api/rooms", nil, &rooms); err != nil {
			return err
		}
		if len(rooms) == 0 {
			ui.PrintWarning("No rooms yet")
			return nil
		}
		ui.RenderRoomsTable(rooms)
		return nil
	},
}

var flagCreateRoomID string

var roomsCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a room (teachers only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, token, err := roomsSession()
		if err != nil {
			return err
		}

		var room store.Room
		body := map[string]string{"title": args[0], "room_id": flagCreateRoomID}
		if err := apiRequest(cfg, token, http.MethodPost, "/api/rooms", body, &room); err != nil {
			return err
		}
		ui.PrintSuccessf("Created room %s (%s)", room.RoomID, room.Title)
		return nil
	},
}

var roomsStatusCmd = &cobra.Command{
	Use:   "status <room-id> <scheduled|live|ended>",
	Short: "Move a room through its lifecycle (owner only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, token, err := roomsSession()
		if err != nil {
			return err
		}

		var room store.Room
		path := "/api/rooms/" + url.PathEscape(args[0]) + "/status"
		body := map[string]string{"status": args[1]}
		if err := apiRequest(cfg, token, http.MethodPatch, path, body, &room); err != nil {
			return err
		}
		ui.PrintSuccessf("Room %s is now %s", room.RoomID, room.Status)
		return nil
	},
}

// roomsSession loads config and mints the API token for room management.
func roomsSession() (*config.Config, string, error) {
	cfg, err := config.Load(config.Options{
		Domain:      flagRoomsDomain,
		Insecure:    flagRoomsInsecure,
		TokenSecret: flagRoomsSecret,
	})
	if err != nil {
		return nil, "", err
	}

	userID := flagRoomsUser
	if userID == "" {
		userID = uuid.NewString()[:8]
	}
	name := flagRoomsName
	if name == "" {
		name = "cli-" + userID
	}

	token, err := auth.Sign([]byte(cfg.TokenSecret),
		auth.Identity{ID: userID, Name: name, Role: flagRoomsRole}, tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return cfg, token, nil
}

func init() {
	rootCmd.AddCommand(roomsCmd)
	roomsCmd.AddCommand(roomsListCmd, roomsCreateCmd, roomsStatusCmd)

	roomsCmd.PersistentFlags().StringVarP(&flagRoomsName, "name", "n", "", "Display name")
	roomsCmd.PersistentFlags().StringVar(&flagRoomsUser, "user", "", "User ID (random when omitted)")
	roomsCmd.PersistentFlags().StringVarP(&flagRoomsRole, "role", "r", auth.RoleTeacher, "Role: student, teacher or admin")
	roomsCmd.PersistentFlags().StringVar(&flagRoomsDomain, "domain", "", "Custom domain")
	roomsCmd.PersistentFlags().BoolVar(&flagRoomsInsecure, "insecure", false, "Use ws/http instead of wss/https")
	roomsCmd.PersistentFlags().StringVar(&flagRoomsSecret, "secret", "", "Token signing secret")

	roomsCreateCmd.Flags().StringVar(&flagCreateRoomID, "room-id", "", "Channel-facing room ID (defaults to a generated ID)")
}
