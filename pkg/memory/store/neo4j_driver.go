//go:build neo4j

package store

import (
	"context"

	neo4j "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type neo4jRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

// WrapNeo4jDriver adapts the official Neo4j Go driver for NewNeo4jMirror.
func WrapNeo4jDriver(driver neo4j.DriverWithContext, database string) CypherRunner {
	if driver == nil {
		return nil
	}
	return &neo4jRunner{driver: driver, database: database}
}

func (r *neo4jRunner) Run(ctx context.Context, query string, params map[string]any) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)
	_, err := session.Run(ctx, query, params)
	return err
}

func (r *neo4jRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
