package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edumesh/liveclass/internal/auth"
	"github.com/edumesh/liveclass/internal/config"
	"github.com/edumesh/liveclass/internal/media"
	"github.com/edumesh/liveclass/internal/realtime"
	"github.com/edumesh/liveclass/internal/room"
	"github.com/edumesh/liveclass/internal/store"
	"github.com/edumesh/liveclass/internal/ui"
)

const (
	joinTimeout = 30 * time.Second
	tokenTTL    = 12 * time.Hour
)

var (
	flagJoinName     string
	flagJoinUser     string
	flagJoinRole     string
	flagJoinDomain   string
	flagJoinInsecure bool
	flagJoinSecret   string
	flagJoinSTUN     string
	flagJoinTURN     string
	flagJoinTURNUser string
	flagJoinTURNPass string
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id|url>",
	Aliases: []string{"j"},
	Short:   "Join a live classroom room",
	Long: `Join a live classroom room as a terminal participant.

Examples:
  liveclass join algebra-1
  liveclass join https://live.edumesh.io/room/algebra-1
  liveclass join algebra-1 --name "Ms. Patel" --role teacher`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := parseRoomInput(args[0])
		if err != nil {
			return err
		}
		return joinRoom(roomID)
	},
}

func joinRoom(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:      flagJoinDomain,
		Insecure:    flagJoinInsecure,
		TokenSecret: flagJoinSecret,
		STUNServer:  flagJoinSTUN,
		TURNServer:  flagJoinTURN,
		TURNUser:    flagJoinTURNUser,
		TURNPass:    flagJoinTURNPass,
	})
	if err != nil {
		return err
	}

	userID := flagJoinUser
	if userID == "" {
		userID = uuid.NewString()[:8]
	}
	name := flagJoinName
	if name == "" {
		name = "guest-" + userID
	}

	token, err := auth.Sign([]byte(cfg.TokenSecret),
		auth.Identity{ID: userID, Name: name, Role: flagJoinRole}, tokenTTL)
	if err != nil {
		return err
	}

	desc := fetchDescriptor(cfg, token, roomID)

	orc := room.New(room.Options{
		Descriptor: desc,
		Identity:   room.Identity{ID: userID, Name: name, Role: flagJoinRole},
		Channels:   realtime.Factory(cfg.WebSocketURL, token),
		Device:     media.NewSyntheticDevice(),
		ICEServers: cfg.ICEServers(),
	})

	fmt.Println()
	stopSpinner := ui.RunConnectionSpinner("Joining room...")
	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()
	err = orc.Join(ctx)
	stopSpinner()
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	kicked, err := ui.RunSession(orc, room.Identity{ID: userID, Name: name, Role: flagJoinRole})
	orc.Leave()
	if err != nil {
		return err
	}

	if kicked {
		ui.PrintWarning("Removed from the room by the host")
	} else {
		ui.PrintSuccess("Left the room")
	}
	return nil
}

// fetchDescriptor loads the room metadata from the server. Rooms that were
// never registered still work: the relay creates topics on demand, so we fall
// back to a bare descriptor carrying just the room ID.
func fetchDescriptor(cfg *config.Config, token, roomID string) room.Descriptor {
	var rec store.Room
	if err := apiRequest(cfg, token, http.MethodGet, "/api/rooms/"+url.PathEscape(roomID), nil, &rec); err != nil {
		ui.PrintWarning(fmt.Sprintf("Room not registered on the server (%v); joining ad hoc", err))
		return room.Descriptor{RoomID: roomID}
	}
	return room.Descriptor{
		ID:         rec.ID,
		RoomID:     rec.RoomID,
		Title:      rec.Title,
		Status:     rec.Status,
		CreatedBy:  rec.CreatedBy,
		MeetingURL: rec.MeetingURL,
	}
}

func parseRoomInput(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("room ID cannot be empty")
	}

	if strings.Contains(input, "://") {
		roomID, err := extractRoomIDFromURL(input)
		if err != nil {
			return "", err
		}
		ui.PrintSuccessf("Extracted room ID: %s", roomID)
		return roomID, nil
	}

	return input, nil
}

func extractRoomIDFromURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	path := strings.TrimSuffix(parsedURL.Path, "/")
	parts := strings.Split(path, "/")

	for i, part := range parts {
		if part == "room" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("could not extract room ID from URL: %s", urlStr)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", "", "Display name")
	joinCmd.Flags().StringVar(&flagJoinUser, "user", "", "User ID (random when omitted)")
	joinCmd.Flags().StringVarP(&flagJoinRole, "role", "r", auth.RoleStudent, "Role: student, teacher or admin")
	joinCmd.Flags().StringVar(&flagJoinDomain, "domain", "", "Custom domain")
	joinCmd.Flags().BoolVar(&flagJoinInsecure, "insecure", false, "Use ws/http instead of wss/https")
	joinCmd.Flags().StringVar(&flagJoinSecret, "secret", "", "Token signing secret")
	joinCmd.Flags().StringVarP(&flagJoinSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagJoinTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVar(&flagJoinTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagJoinTURNPass, "turn-pass", "", "TURN password")
}
