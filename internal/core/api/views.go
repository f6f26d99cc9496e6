package api

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/gridview/internal/core/db"
	"github.com/solatis/gridview/internal/grid"
	"github.com/solatis/gridview/internal/resolver"
	"github.com/solatis/gridview/internal/types"
	"google.golang.org/protobuf/types/known/structpb"
)

// GroupToggle opens or closes one group header before the tree is returned.
type GroupToggle struct {
	Key       string `json:"key"`
	Collapsed bool   `json:"collapsed"`
}

// ResolveViewRequest names a stored view, or carries an inline view with the
// list it applies to. An inline view sent together with ViewID replaces the
// stored definition for this call only.
type ResolveViewRequest struct {
	ViewID  string        `json:"view_id,omitempty"`
	List    string        `json:"list,omitempty"`
	View    *types.View   `json:"view,omitempty"`
	Toggles []GroupToggle `json:"toggles,omitempty"`
}

// ResolvedRecord is one displayed record with its list key.
type ResolvedRecord struct {
	Key    string       `json:"key"`
	Record types.Record `json:"record"`
}

// ResolveViewResponse is the displayed state of a view.
type ResolveViewResponse struct {
	ViewID   string           `json:"view_id,omitempty"`
	Revision int              `json:"revision,omitempty"`
	Records  []ResolvedRecord `json:"records"`
	Groups   []types.Group    `json:"groups,omitempty"`
	Sorts    []types.SortSpec `json:"sorts,omitempty"`
}

// SaveViewRequest stores a view definition. An empty ViewID creates a view.
type SaveViewRequest struct {
	ViewID string     `json:"view_id,omitempty"`
	List   string     `json:"list"`
	Name   string     `json:"name,omitempty"`
	View   types.View `json:"view"`
}

// ViewSummary describes the latest revision of a stored view.
type ViewSummary struct {
	ViewID    string    `json:"view_id"`
	Revision  int       `json:"revision"`
	List      string    `json:"list"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListViewsResponse lists the views of the caller's site.
type ListViewsResponse struct {
	Views []ViewSummary `json:"views"`
}

// ResolveView resolves a view over its list and returns records and groups.
// For stored views the group expand state is loaded before resolution and
// saved after toggles, so it survives between calls.
func (s *ViewService) ResolveView(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, s.resolveView)
}

func (s *ViewService) resolveView(ctx context.Context, site types.SiteID, req ResolveViewRequest) (ResolveViewResponse, error) {
	target, err := s.target(ctx, site, req.ViewID, req.List, req.View)
	if err != nil {
		return ResolveViewResponse{}, err
	}

	keyed, err := s.store.ListRecords(ctx, site, target.ListName)
	if err != nil {
		return ResolveViewResponse{}, err
	}
	records, keys := splitKeyed(keyed)

	var prev *resolver.Expansion
	if target.ID != "" {
		if prev, err = s.store.LoadExpansion(ctx, site, target.ID); err != nil {
			return ResolveViewResponse{}, err
		}
	}

	g, err := grid.New(records, target.View, grid.WithResolver(s.resolver), grid.WithExpansion(prev))
	if err != nil {
		return ResolveViewResponse{}, fmt.Errorf("%w: %v", errInvalid, err)
	}
	for _, t := range req.Toggles {
		if !g.SetCollapsed(t.Key, t.Collapsed) {
			return ResolveViewResponse{}, fmt.Errorf("%w: unknown group key %q", errInvalid, t.Key)
		}
	}

	if target.ID != "" {
		if err := s.store.SaveExpansion(ctx, site, target.ID, g.Expansion()); err != nil {
			return ResolveViewResponse{}, err
		}
	}

	result := g.Result()
	resp := ResolveViewResponse{
		ViewID:   string(target.ID),
		Revision: target.Revision,
		Records:  make([]ResolvedRecord, len(result.Records)),
		Groups:   g.Groups(),
		Sorts:    result.Sorts,
	}
	for i, rec := range result.Records {
		resp.Records[i] = ResolvedRecord{Key: keys[result.Indices[i]], Record: rec}
	}

	s.logger.Debug("resolved view", "site_id", site, "view_id", target.ID, "list", target.ListName,
		"records", len(resp.Records), "groups", len(resp.Groups))
	return resp, nil
}

// target finds the view a request addresses: the stored view when viewID is
// set (optionally overridden by inline), else the inline view on list.
func (s *ViewService) target(ctx context.Context, site types.SiteID, viewID, list string, inline *types.View) (db.StoredView, error) {
	if viewID == "" {
		if inline == nil {
			return db.StoredView{}, fmt.Errorf("%w: view_id or view required", errInvalid)
		}
		if list == "" {
			return db.StoredView{}, fmt.Errorf("%w: list required with an inline view", errInvalid)
		}
		return db.StoredView{SiteID: site, ListName: list, View: *inline}, nil
	}

	id, err := types.ParseViewID(viewID)
	if err != nil {
		return db.StoredView{}, fmt.Errorf("%w: %v", errInvalid, err)
	}
	stored, err := s.store.LatestView(ctx, site, id)
	if err != nil {
		return db.StoredView{}, err
	}
	if inline != nil {
		stored.View = *inline
	}
	return stored, nil
}

// SaveView stores a new revision of a view.
func (s *ViewService) SaveView(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, s.saveView)
}

func (s *ViewService) saveView(ctx context.Context, site types.SiteID, req SaveViewRequest) (ViewSummary, error) {
	if req.List == "" {
		return ViewSummary{}, fmt.Errorf("%w: list required", errInvalid)
	}
	if err := req.View.Validate(); err != nil {
		return ViewSummary{}, fmt.Errorf("%w: %v", errInvalid, err)
	}

	v := db.StoredView{SiteID: site, ListName: req.List, Name: req.Name, View: req.View}
	if req.ViewID != "" {
		id, err := types.ParseViewID(req.ViewID)
		if err != nil {
			return ViewSummary{}, fmt.Errorf("%w: %v", errInvalid, err)
		}
		v.ID = id
	}

	saved, err := s.store.SaveView(ctx, v)
	if err != nil {
		return ViewSummary{}, err
	}
	s.logger.Info("saved view", "site_id", site, "view_id", saved.ID, "revision", saved.Revision)
	return summarize(saved), nil
}

// ListViews returns the latest revision of every view of the site.
func (s *ViewService) ListViews(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, in, func(ctx context.Context, site types.SiteID, _ struct{}) (ListViewsResponse, error) {
		views, err := s.store.ListViews(ctx, site)
		if err != nil {
			return ListViewsResponse{}, err
		}
		resp := ListViewsResponse{Views: make([]ViewSummary, len(views))}
		for i, v := range views {
			resp.Views[i] = summarize(v)
		}
		return resp, nil
	})
}

func summarize(v db.StoredView) ViewSummary {
	return ViewSummary{
		ViewID:    string(v.ID),
		Revision:  v.Revision,
		List:      v.ListName,
		Name:      v.Name,
		CreatedAt: v.CreatedAt,
	}
}

func splitKeyed(keyed []db.KeyedRecord) ([]types.Record, []string) {
	records := make([]types.Record, len(keyed))
	keys := make([]string, len(keyed))
	for i, k := range keyed {
		records[i] = k.Record
		keys[i] = k.Key
	}
	return records, keys
}
