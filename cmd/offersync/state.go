package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ETAnderson/offersync/internal/config"
	"github.com/ETAnderson/offersync/internal/state"
)

func newStateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the persisted published state",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConfig, err := config.LoadDatabase(viper.GetViper())
			if err != nil {
				return err
			}

			res, err := openBackend(cmd.Context(), dbConfig)
			if err != nil {
				return err
			}
			defer res.Close() //nolint:errcheck

			store, err := state.Load(cmd.Context(), res.Backend)
			if err != nil {
				return err
			}

			printStore(os.Stdout, store)
			return nil
		},
	}
}

func openBackend(ctx context.Context, dbConfig config.DatabaseConfig) (state.FactoryResult, error) {
	return state.NewBackend(ctx, state.FactoryConfig{
		Backend:  dbConfig.Backend,
		Path:     dbConfig.Path,
		MySQLDSN: dbConfig.DSN,
		Redis: state.RedisConfig{
			Addr:     dbConfig.Redis.Addr,
			Password: dbConfig.Redis.Password,
			DB:       dbConfig.Redis.DB,
			Key:      dbConfig.Redis.Key,
		},
	})
}

func printStore(w io.Writer, store *state.Store) {
	idColor := color.New(color.FgCyan, color.Bold)
	liveColor := color.New(color.FgGreen)
	lostColor := color.New(color.FgYellow)
	keyColor := color.New(color.Faint)

	ids := store.IDs()
	fmt.Fprintf(w, "%d offers\n", len(ids))

	for _, id := range ids {
		msg, _ := store.Get(id)

		status := lostColor.Sprint("no message")
		if msg.MessageID != nil {
			status = liveColor.Sprintf("message %d", *msg.MessageID)
		}

		fmt.Fprintf(w, "%s  %s  keys: %s\n",
			idColor.Sprintf("%d", id),
			status,
			keyColor.Sprint(strings.Join(msg.AuthKeys, ", ")),
		)
	}
}
