package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	infraredis "quiz-room-service/internal/infra/redis"
)

// NewRoomsCmd lists the room snapshots a running server mirrors into Redis.
func NewRoomsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List live rooms mirrored in Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("redis addr not configured")
			}

			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			rooms, err := infraredis.NewRoomMirror(client, 0).ListRooms(ctx)
			if err != nil {
				return fmt.Errorf("list rooms: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PIN\tPLAYERS\tSTARTED\tFINISHED\tQUESTIONS\tAGE")
			for _, room := range rooms {
				fmt.Fprintf(w, "%s\t%d\t%t\t%t\t%d\t%s\n",
					room.Pin, len(room.Players), room.IsStarted, room.Finished,
					room.QuestionCount, time.Since(room.CreatedAt).Round(time.Second))
			}
			return w.Flush()
		},
	}
}
