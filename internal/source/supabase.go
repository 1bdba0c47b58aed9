package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const DefaultSupabaseTable = "tasks"

// SupabaseSource reads tasks from a Supabase table whose columns follow the
// task JSON field names.
type SupabaseSource struct {
	client *supabase.Client
	table  string
	log    logrus.FieldLogger

	// fetch returns the raw JSON array of rows.
	fetch func(ctx context.Context) ([]byte, error)
}

func NewSupabaseSource(url, key, table string, log logrus.FieldLogger) (*SupabaseSource, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}
	if table == "" {
		table = DefaultSupabaseTable
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	s := &SupabaseSource{client: client, table: table, log: log}
	s.fetch = s.query
	return s, nil
}

func (s *SupabaseSource) query(ctx context.Context) ([]byte, error) {
	resp, _, err := s.client.From(s.table).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
	}
	return resp, nil
}

func (s *SupabaseSource) ListTasks(ctx context.Context) ([]models.Task, error) {
	raw, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var rows []taskRecord
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode task rows: %w", err)
	}

	tasks := make([]models.Task, 0, len(rows))
	for _, rec := range rows {
		t, err := rec.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	s.log.WithFields(logrus.Fields{"table": s.table, "tasks": len(tasks)}).Debug("Loaded tasks from supabase")
	return tasks, nil
}
