package core

import (
	"context"
)

// Shutdown tears down every subsystem in the reverse of construction
// order, giving the HTTP server up to ctx's deadline to drain in-flight
// requests before the process exits.
func (c *Core) Shutdown(ctx context.Context) error {
	c.log.Info().Msg("shutting down")

	c.sched.Stop()

	if err := c.httpSrv.Shutdown(ctx); err != nil {
		c.log.Error().Err(err).Msg("HTTP server shutdown did not complete cleanly")
	}

	if err := c.ledger.Close(); err != nil {
		c.log.Error().Err(err).Msg("failed to close outcome ledger")
		return err
	}

	c.log.Info().Msg("shutdown complete")
	return nil
}
