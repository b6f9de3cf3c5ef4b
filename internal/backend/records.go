package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"cyberxpert/internal/domain"
)

// ListTests returns every test the backend exposes to the caller.
func (c *Client) ListTests(ctx context.Context) ([]domain.Record, error) {
	return c.listRecords(ctx, "/api/tests/", domain.KindTest)
}

// ListReports returns every report the backend exposes to the caller.
func (c *Client) ListReports(ctx context.Context) ([]domain.Record, error) {
	return c.listRecords(ctx, "/api/reports/", domain.KindReport)
}

func (c *Client) listRecords(ctx context.Context, path string, kind domain.RecordKind) ([]domain.Record, error) {
	records, err := listAll[domain.Record](ctx, c, path)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Kind == "" {
			records[i].Kind = kind
		}
	}
	return records, nil
}

// MarkReportRead flags a report as read for the caller.
func (c *Client) MarkReportRead(ctx context.Context, id domain.ID) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/reports/%s/read/", url.PathEscape(id.String())), nil, nil)
}

// AddressVulnerability marks one finding of a test as addressed.
func (c *Client) AddressVulnerability(ctx context.Context, recordID, vulnID domain.ID) error {
	path := fmt.Sprintf("/api/tests/%s/vulnerabilities/%s/address/",
		url.PathEscape(recordID.String()), url.PathEscape(vulnID.String()))
	return c.call(ctx, http.MethodPost, path, nil, nil)
}
