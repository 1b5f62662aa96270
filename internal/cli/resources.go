package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"taskboard/internal/client"
	"taskboard/internal/models"
)

// resource binds one /api collection to the generic list/get/create/update/
// delete subcommands. create receives the --data document decoded into the
// collection's input type; update forwards it untouched so that only the
// keys present are merged.
type resource struct {
	name     string
	singular string
	filters  func(cmd *cobra.Command) func() interface{}

	list   func(ctx context.Context, api *client.APIService, filter interface{}) (interface{}, error)
	get    func(ctx context.Context, api *client.APIService, id string) (interface{}, error)
	create func(ctx context.Context, api *client.APIService, data []byte) (interface{}, error)
	update func(ctx context.Context, api *client.APIService, id string, data json.RawMessage) (interface{}, error)
	delete func(ctx context.Context, api *client.APIService, id string) error
}

func resources() []resource {
	return []resource{
		{
			name:     "tasks",
			singular: "Task",
			filters: func(cmd *cobra.Command) func() interface{} {
				q := &client.TaskQuery{}
				cmd.Flags().StringVar(&q.Category, "category", "", "only tasks in this category")
				cmd.Flags().StringVar(&q.Status, "status", "", "only tasks with this status")
				cmd.Flags().StringVar(&q.Priority, "priority", "", "only tasks with this priority")
				cmd.Flags().StringVar(&q.Search, "search", "", "case-insensitive title search")
				return func() interface{} { return *q }
			},
			list: func(ctx context.Context, api *client.APIService, f interface{}) (interface{}, error) {
				return api.ListTasks(ctx, f.(client.TaskQuery))
			},
			get: func(ctx context.Context, api *client.APIService, id string) (interface{}, error) {
				return api.GetTask(ctx, id)
			},
			create: func(ctx context.Context, api *client.APIService, data []byte) (interface{}, error) {
				var in models.TaskInput
				if err := decodeData(data, &in); err != nil {
					return nil, err
				}
				return api.CreateTask(ctx, in)
			},
			update: func(ctx context.Context, api *client.APIService, id string, data json.RawMessage) (interface{}, error) {
				return api.UpdateTask(ctx, id, data)
			},
			delete: func(ctx context.Context, api *client.APIService, id string) error {
				return api.DeleteTask(ctx, id)
			},
		},
		{
			name:     "categories",
			singular: "Category",
			list: func(ctx context.Context, api *client.APIService, _ interface{}) (interface{}, error) {
				return api.ListCategories(ctx)
			},
			get: func(ctx context.Context, api *client.APIService, id string) (interface{}, error) {
				return api.GetCategory(ctx, id)
			},
			create: func(ctx context.Context, api *client.APIService, data []byte) (interface{}, error) {
				var in models.CategoryInput
				if err := decodeData(data, &in); err != nil {
					return nil, err
				}
				return api.CreateCategory(ctx, in)
			},
			update: func(ctx context.Context, api *client.APIService, id string, data json.RawMessage) (interface{}, error) {
				return api.UpdateCategory(ctx, id, data)
			},
			delete: func(ctx context.Context, api *client.APIService, id string) error {
				return api.DeleteCategory(ctx, id)
			},
		},
		{
			name:     "notes",
			singular: "Note",
			filters: func(cmd *cobra.Command) func() interface{} {
				q := &client.NoteQuery{}
				cmd.Flags().StringVar(&q.TaskID, "task-id", "", "only notes attached to this task")
				cmd.Flags().StringVar(&q.Search, "search", "", "case-insensitive content search")
				return func() interface{} { return *q }
			},
			list: func(ctx context.Context, api *client.APIService, f interface{}) (interface{}, error) {
				return api.ListNotes(ctx, f.(client.NoteQuery))
			},
			get: func(ctx context.Context, api *client.APIService, id string) (interface{}, error) {
				return api.GetNote(ctx, id)
			},
			create: func(ctx context.Context, api *client.APIService, data []byte) (interface{}, error) {
				var in models.NoteInput
				if err := decodeData(data, &in); err != nil {
					return nil, err
				}
				return api.CreateNote(ctx, in)
			},
			update: func(ctx context.Context, api *client.APIService, id string, data json.RawMessage) (interface{}, error) {
				return api.UpdateNote(ctx, id, data)
			},
			delete: func(ctx context.Context, api *client.APIService, id string) error {
				return api.DeleteNote(ctx, id)
			},
		},
		{
			name:     "users",
			singular: "User",
			list: func(ctx context.Context, api *client.APIService, _ interface{}) (interface{}, error) {
				return api.ListUsers(ctx)
			},
			get: func(ctx context.Context, api *client.APIService, id string) (interface{}, error) {
				return api.GetUser(ctx, id)
			},
			create: func(ctx context.Context, api *client.APIService, data []byte) (interface{}, error) {
				var in models.UserInput
				if err := decodeData(data, &in); err != nil {
					return nil, err
				}
				return api.CreateUser(ctx, in)
			},
			update: func(ctx context.Context, api *client.APIService, id string, data json.RawMessage) (interface{}, error) {
				return api.UpdateUser(ctx, id, data)
			},
			delete: func(ctx context.Context, api *client.APIService, id string) error {
				return api.DeleteUser(ctx, id)
			},
		},
	}
}

func newResourceCommand(rootOpts *RootOptions, r resource) *cobra.Command {
	cmd := &cobra.Command{
		Use:   r.name,
		Short: fmt.Sprintf("Manage %s on a running server", r.name),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List " + r.name,
		Args:  cobra.NoArgs,
	}
	filter := func() interface{} { return nil }
	if r.filters != nil {
		filter = r.filters(list)
	}
	list.RunE = func(cmd *cobra.Command, args []string) error {
		out, err := r.list(cmd.Context(), rootOpts.api(cmd), filter())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one " + r.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := r.get(cmd.Context(), rootOpts.api(cmd), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	var createData string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a " + r.singular + " from a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := r.create(cmd.Context(), rootOpts.api(cmd), []byte(createData))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	create.Flags().StringVar(&createData, "data", "{}", "fields as JSON")

	var updateData string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Merge a JSON document into a " + r.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := json.RawMessage(updateData)
			if !json.Valid(raw) {
				return fmt.Errorf("invalid --data JSON")
			}
			out, err := r.update(cmd.Context(), rootOpts.api(cmd), args[0], raw)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	update.Flags().StringVar(&updateData, "data", "{}", "fields to change as JSON")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + r.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.delete(cmd.Context(), rootOpts.api(cmd), args[0]); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"message": r.singular + " deleted successfully",
			})
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := rootOpts.api(cmd).GetStats(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func decodeData(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("invalid --data JSON: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
