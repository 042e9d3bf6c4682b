package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// PageBatch is one page of a database listing. Next is empty on the last
// batch.
type PageBatch struct {
	Pages []notionapi.Page
	Next  notionapi.Cursor
}

// PageService is the slice of the Notion API the mirror uses, bound to one
// database.
type PageService interface {
	ListPages(ctx context.Context, cursor notionapi.Cursor) (PageBatch, error)
	CreatePage(ctx context.Context, properties notionapi.Properties) (notionapi.ObjectID, error)
	SetProperties(ctx context.Context, pageID notionapi.ObjectID, properties notionapi.Properties) error

	// ArchivePage moves a page to the Notion trash, where it stays recoverable.
	ArchivePage(ctx context.Context, pageID notionapi.ObjectID) error
}
