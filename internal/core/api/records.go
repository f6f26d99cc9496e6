package api

import (
	"context"
	"fmt"

	"github.com/solatis/gridview/internal/core/db"
	"github.com/solatis/gridview/internal/grid"
	"github.com/solatis/gridview/internal/types"
	"google.golang.org/protobuf/types/known/structpb"
)

// PutRecordsRequest stores records in a list. Records come either as JSON
// objects or as the raw body of a SharePoint REST/OData item query. KeyPath
// names the field whose value becomes the record key; records without one
// get a generated key.
type PutRecordsRequest struct {
	List    string         `json:"list"`
	KeyPath string         `json:"key_path,omitempty"`
	Records []types.Record `json:"records,omitempty"`
	OData   string         `json:"odata,omitempty"`
}

// PutRecordsResponse returns the stored keys in request order.
type PutRecordsResponse struct {
	Keys []string `json:"keys"`
}

// DeleteRecordsRequest removes records by key.
type DeleteRecordsRequest struct {
	List string   `json:"list"`
	Keys []string `json:"keys"`
}

// DeleteRecordsResponse reports how many of the keys existed.
type DeleteRecordsResponse struct {
	Deleted int `json:"deleted"`
}

// ListFilterValuesRequest asks for the filter panel candidates of Path.
type ListFilterValuesRequest struct {
	ViewID string      `json:"view_id,omitempty"`
	List   string      `json:"list,omitempty"`
	View   *types.View `json:"view,omitempty"`
	Path   string      `json:"path"`
	Search string      `json:"search,omitempty"`
}

// ListFilterValuesResponse carries the candidate values in display order.
type ListFilterValuesResponse struct {
	Values []string `json:"values"`
}

// PutRecords inserts or replaces records in one transaction.
// Batches above the configured maximum are rejected whole.
func (s *ViewService) PutRecords(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, s.putRecords)
}

func (s *ViewService) putRecords(ctx context.Context, site types.SiteID, req PutRecordsRequest) (PutRecordsResponse, error) {
	if req.List == "" {
		return PutRecordsResponse{}, fmt.Errorf("%w: list required", errInvalid)
	}

	records := req.Records
	if req.OData != "" {
		if len(records) > 0 {
			return PutRecordsResponse{}, fmt.Errorf("%w: records and odata are exclusive", errInvalid)
		}
		decoded, err := db.DecodeItems([]byte(req.OData))
		if err != nil {
			return PutRecordsResponse{}, fmt.Errorf("%w: %v", errInvalid, err)
		}
		records = decoded
	}

	if len(records) == 0 {
		return PutRecordsResponse{Keys: []string{}}, nil
	}
	if len(records) > s.cfg.MaxBatchSize {
		return PutRecordsResponse{}, fmt.Errorf("%w: batch size exceeds maximum of %d records", errInvalid, s.cfg.MaxBatchSize)
	}

	f := s.resolver.Formatter()
	keyed := make([]db.KeyedRecord, len(records))
	keys := make([]string, len(records))
	for i, rec := range records {
		if rec == nil {
			return PutRecordsResponse{}, fmt.Errorf("%w: record %d is null", errInvalid, i)
		}
		key, ok := grid.KeyFor(f, rec, req.KeyPath)
		if !ok {
			key = types.NewRecordKey()
		}
		keyed[i] = db.KeyedRecord{Key: key, Record: rec}
		keys[i] = key
	}

	if err := s.store.UpsertRecords(ctx, site, req.List, keyed); err != nil {
		return PutRecordsResponse{}, err
	}
	s.logger.Info("stored records", "site_id", site, "list", req.List, "count", len(keyed))
	return PutRecordsResponse{Keys: keys}, nil
}

// DeleteRecords removes records by key. Unknown keys are not an error.
func (s *ViewService) DeleteRecords(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, func(ctx context.Context, site types.SiteID, req DeleteRecordsRequest) (DeleteRecordsResponse, error) {
		if req.List == "" {
			return DeleteRecordsResponse{}, fmt.Errorf("%w: list required", errInvalid)
		}
		if len(req.Keys) > s.cfg.MaxBatchSize {
			return DeleteRecordsResponse{}, fmt.Errorf("%w: batch size exceeds maximum of %d keys", errInvalid, s.cfg.MaxBatchSize)
		}
		n, err := s.store.DeleteRecords(ctx, site, req.List, req.Keys)
		if err != nil {
			return DeleteRecordsResponse{}, err
		}
		return DeleteRecordsResponse{Deleted: n}, nil
	})
}

// ListFilterValues returns the filter panel candidates for one field of a view.
func (s *ViewService) ListFilterValues(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, s.listFilterValues)
}

func (s *ViewService) listFilterValues(ctx context.Context, site types.SiteID, req ListFilterValuesRequest) (ListFilterValuesResponse, error) {
	if req.Path == "" {
		return ListFilterValuesResponse{}, fmt.Errorf("%w: path required", errInvalid)
	}
	target, err := s.target(ctx, site, req.ViewID, req.List, req.View)
	if err != nil {
		return ListFilterValuesResponse{}, err
	}

	keyed, err := s.store.ListRecords(ctx, site, target.ListName)
	if err != nil {
		return ListFilterValuesResponse{}, err
	}
	records, _ := splitKeyed(keyed)

	g, err := grid.New(records, target.View, grid.WithResolver(s.resolver))
	if err != nil {
		return ListFilterValuesResponse{}, fmt.Errorf("%w: %v", errInvalid, err)
	}
	values, err := g.FilterValues(req.Path, req.Search)
	if err != nil {
		return ListFilterValuesResponse{}, err
	}
	if values == nil {
		values = []string{}
	}
	return ListFilterValuesResponse{Values: values}, nil
}
