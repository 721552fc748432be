package repository

import (
	"context"
	"database/sql"
	"errors"
	"github.com/lib/pq"
	"pkce-auth-server/config"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/util"
)

// ClientRepository : реестр клиентов в таблице oauth_clients
type ClientRepository struct {
	*config.Database
}

func NewClientRepository(database *config.Database) *ClientRepository {
	return &ClientRepository{database}
}

func (r *ClientRepository) FindClient(ctx context.Context, clientID string) (*model.Client, error) {
	query := `SELECT client_id, name, redirect_uris, scopes FROM oauth_clients WHERE client_id = $1`

	client := &model.Client{}
	err := r.DB.QueryRowContext(ctx, query, clientID).Scan(
		&client.ClientID,
		&client.Name,
		pq.Array(&client.RedirectURIs),
		pq.Array(&client.Scopes),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	} else if err != nil {
		return nil, util.LogError("[ClientRepo] ошибка при выполнении запроса", err)
	}
	return client, nil
}
