package bitwarden

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoFolder is returned when FolderItems is called without a folder id.
var ErrNoFolder = errors.New("folder id is required")

// Login is the login part of a vault item.
type Login struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// Item is a vault item as printed by `bw list items`.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	FolderID *string `json:"folderId"`
	Login    *Login  `json:"login"`
}

// Passphrase returns the item's login password. Items without a login or
// with a null password report false; an empty password is still a password.
func (i Item) Passphrase() (string, bool) {
	if i.Login == nil || i.Login.Password == nil {
		return "", false
	}
	return *i.Login.Password, true
}

// Sync pulls the latest vault data from the server.
func (c *Client) Sync(ctx context.Context, s Session) error {
	if _, err := c.run(ctx, s, Invocation{Args: []string{"sync"}}); err != nil {
		return fmt.Errorf("failed to sync vault: %w", err)
	}
	return nil
}

// FolderItems returns every item in folderID.
func (c *Client) FolderItems(ctx context.Context, s Session, folderID string) ([]Item, error) {
	if folderID == "" {
		return nil, ErrNoFolder
	}
	c.logger.Debug("listing folder items", "folder_id", folderID)

	out, err := c.run(ctx, s, Invocation{Args: []string{"list", "items", "--folderid", folderID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(out, &items); err != nil {
		return nil, fmt.Errorf("failed to decode item list: %w", err)
	}
	return items, nil
}
