package repository

import (
	"context"
	"fmt"
	"pkce-auth-server/internal/model"
	"sync"
)

// StaticClientRegistry : реестр клиентов в памяти, заполняется из конфига или документа в S3
type StaticClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]model.Client
}

func NewStaticClientRegistry(clients []model.Client) (*StaticClientRegistry, error) {
	registry := &StaticClientRegistry{}
	if err := registry.Replace(clients); err != nil {
		return nil, err
	}
	return registry, nil
}

func (r *StaticClientRegistry) FindClient(_ context.Context, clientID string) (*model.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	return &client, nil
}

// Replace : атомарно подменяет весь список клиентов
func (r *StaticClientRegistry) Replace(clients []model.Client) error {
	byID := make(map[string]model.Client, len(clients))
	for _, client := range clients {
		if client.ClientID == "" {
			return fmt.Errorf("у клиента %q не задан client_id", client.Name)
		}
		if len(client.RedirectURIs) == 0 {
			return fmt.Errorf("у клиента %s нет redirect_uris", client.ClientID)
		}
		if _, exists := byID[client.ClientID]; exists {
			return fmt.Errorf("клиент %s объявлен дважды", client.ClientID)
		}
		byID[client.ClientID] = client
	}

	r.mu.Lock()
	r.clients = byID
	r.mu.Unlock()
	return nil
}
