package handler

import (
	"time"

	"mintpress/internal/events"
	"mintpress/internal/ledger/models"
	"mintpress/pkg/domain"
)

type CollectionResponse struct {
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	CredentialCount uint64 `json:"credential_count"`
	PostCount       uint64 `json:"post_count"`
}

type IssueCredentialResponse struct {
	CredentialID domain.CredentialID `json:"credential_id"`
	Owner        domain.Address      `json:"owner"`
}

type CredentialResponse struct {
	ID       domain.CredentialID `json:"id"`
	Owner    domain.Address      `json:"owner"`
	Locator  string              `json:"locator"`
	IssuedAt time.Time           `json:"issued_at"`
}

func toCredentialResponse(c *models.Credential) CredentialResponse {
	return CredentialResponse{ID: c.ID, Owner: c.Owner, Locator: c.Locator, IssuedAt: c.IssuedAt}
}

type AccountResponse struct {
	Address           domain.Address      `json:"address"`
	CredentialBalance uint64              `json:"credential_balance"`
	Profile           domain.CredentialID `json:"profile"`
	WalletBalance     domain.Amount       `json:"wallet_balance"`
}

type CreatePostResponse struct {
	PostID      domain.PostID `json:"post_id"`
	ContentHash string        `json:"content_hash"`
}

type PostResponse struct {
	ID        domain.PostID  `json:"id"`
	Hash      string         `json:"hash"`
	Author    domain.Address `json:"author"`
	TipTotal  domain.Amount  `json:"tip_total"`
	CreatedAt time.Time      `json:"created_at"`
}

func toPostResponse(p *models.Post) PostResponse {
	return PostResponse{ID: p.ID, Hash: p.Hash, Author: p.Author, TipTotal: p.TipTotal, CreatedAt: p.CreatedAt}
}

type PostListResponse struct {
	Posts []PostResponse `json:"posts"`
	Total uint64         `json:"total"`
}

type EventListResponse struct {
	Events []events.Event `json:"events"`
	// Next is the seq to pass as after for the following page.
	Next uint64 `json:"next"`
}

type BalanceResponse struct {
	Address       domain.Address `json:"address"`
	WalletBalance domain.Amount  `json:"wallet_balance"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
