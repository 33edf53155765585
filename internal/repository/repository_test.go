package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewSlotRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewSlotRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewRequestRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewRequestRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewNegotiationRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewNegotiationRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewNotificationRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewNotificationRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewUserRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewUserRepository(pool)
	assert.NotNil(t, repo)
}
