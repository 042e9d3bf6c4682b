package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// listPageSize is the largest page size the Notion API accepts.
const listPageSize = 100

// Client implements PageService with github.com/jomei/notionapi.
type Client struct {
	api        *notionapi.Client
	databaseID notionapi.DatabaseID
}

// NewClient returns a Client writing to the database databaseID.
func NewClient(token, databaseID string) *Client {
	return &Client{
		api:        notionapi.NewClient(notionapi.Token(token)),
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

func (c *Client) ListPages(ctx context.Context, cursor notionapi.Cursor) (PageBatch, error) {
	resp, err := c.api.Database.Query(ctx, c.databaseID, &notionapi.DatabaseQueryRequest{
		StartCursor: cursor,
		PageSize:    listPageSize,
	})
	if err != nil {
		return PageBatch{}, fmt.Errorf("ListPages: %w", err)
	}

	batch := PageBatch{Pages: resp.Results}
	if resp.HasMore {
		batch.Next = resp.NextCursor
	}
	return batch, nil
}

func (c *Client) CreatePage(ctx context.Context, properties notionapi.Properties) (notionapi.ObjectID, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: c.databaseID,
		},
		Properties: properties,
	})
	if err != nil {
		return "", fmt.Errorf("CreatePage: %w", err)
	}
	return page.ID, nil
}

func (c *Client) SetProperties(ctx context.Context, pageID notionapi.ObjectID, properties notionapi.Properties) error {
	if _, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: properties,
	}); err != nil {
		return fmt.Errorf("SetProperties %s: %w", pageID, err)
	}
	return nil
}

func (c *Client) ArchivePage(ctx context.Context, pageID notionapi.ObjectID) error {
	if _, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Archived: true,
	}); err != nil {
		return fmt.Errorf("ArchivePage %s: %w", pageID, err)
	}
	return nil
}

var _ PageService = (*Client)(nil)
