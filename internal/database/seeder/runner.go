package seeder

import (
	"context"
	"fmt"
	"log"
)

type Runner struct {
	Seeders []Seeder
	Logger  *log.Logger
}

// Run applies every seeder in order. Seeders only create what is missing, so
// running twice is harmless and admin edits survive a restart.
func (r Runner) Run(ctx context.Context, t Target) error {
	for _, s := range r.Seeders {
		if s == nil {
			continue
		}
		n, err := s.Run(ctx, t)
		if err != nil {
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
		if r.Logger != nil {
			r.Logger.Printf("[Seeder] %s created=%d", s.Name(), n)
		}
	}
	return nil
}
