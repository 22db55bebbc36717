package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/listing"
	"github.com/goliatone/go-leadconsole/pkg/notify"
	"github.com/goliatone/go-leadconsole/pkg/resources"
)

const (
	actionNext    = "Next page"
	actionPrev    = "Previous page"
	actionGoto    = "Go to page"
	actionSearch  = "Search"
	actionFilter  = "Filter"
	actionView    = "View"
	actionCreate  = "Create"
	actionEdit    = "Edit"
	actionDelete  = "Delete"
	actionRefresh = "Refresh"
	actionBack    = "Back"
)

func listActions(res resources.Resource, snap listing.Snapshot) []string {
	actions := make([]string, 0, 11)
	if snap.Query.Page < snap.TotalPages {
		actions = append(actions, actionNext)
	}
	if snap.Query.Page > 1 {
		actions = append(actions, actionPrev)
	}
	if snap.TotalPages > 1 {
		actions = append(actions, actionGoto)
	}
	actions = append(actions, actionSearch)
	if res.FilterKey != "" {
		actions = append(actions, actionFilter)
	}
	if len(snap.Items) > 0 {
		actions = append(actions, actionView)
	}
	actions = append(actions, actionCreate)
	if len(snap.Items) > 0 {
		actions = append(actions, actionEdit, actionDelete)
	}
	return append(actions, actionRefresh, actionBack)
}

func (c *Console) listScreen(ctx context.Context, res resources.Resource) error {
	ctrl := res.Controller(c.api,
		listing.WithNotifier(c),
		listing.WithSession(c.sess),
		listing.WithLogger(c.logger),
	)
	cancel := ctrl.OnChange(func(snap listing.Snapshot) {
		if snap.Loading {
			c.renderTable(res, snap)
		}
	})
	defer cancel()

	if _, err := ctrl.Refresh(ctx); err != nil {
		if err := c.fetched(ctx, err); err != nil {
			return err
		}
	}

	for {
		if !c.sess.Authenticated() {
			return errSignedOut
		}
		snap := ctrl.Snapshot()
		c.renderTable(res, snap)

		actions := listActions(res, snap)
		idx, err := c.driver.Select(ctx, SelectConfig{Message: res.Title, Options: actions})
		if errors.Is(err, ErrAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(actions) {
			continue
		}

		switch actions[idx] {
		case actionNext:
			_, err = ctrl.SetQuery(ctx, listing.Page(snap.Query.Page+1))
			err = c.fetched(ctx, err)
		case actionPrev:
			_, err = ctrl.SetQuery(ctx, listing.Page(snap.Query.Page-1))
			err = c.fetched(ctx, err)
		case actionGoto:
			err = c.gotoPage(ctx, ctrl, snap)
		case actionSearch:
			err = c.search(ctx, ctrl, snap)
		case actionFilter:
			err = c.filter(ctx, ctrl, res, snap)
		case actionView:
			err = c.view(ctx, res, snap)
		case actionCreate:
			err = c.edit(ctx, ctrl, res, nil)
		case actionEdit:
			var record client.Record
			record, err = c.pick(ctx, res, snap, "Edit which "+strings.ToLower(res.Singular)+"?")
			if err == nil && record != nil {
				err = c.edit(ctx, ctrl, res, record)
			}
		case actionDelete:
			err = c.remove(ctx, ctrl, res, snap)
		case actionRefresh:
			_, err = ctrl.Refresh(ctx)
			err = c.fetched(ctx, err)
		case actionBack:
			return nil
		}
		if errors.Is(err, ErrAborted) {
			continue
		}
		if err != nil {
			return err
		}
	}
}

// fetched drops list errors the controller already reported.
func (c *Console) fetched(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, listing.ErrStale) {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if !c.sess.Authenticated() {
		return errSignedOut
	}
	c.logger.Debug().Err(err).Msg("list fetch failed")
	return nil
}

func (c *Console) gotoPage(ctx context.Context, ctrl *listing.Controller, snap listing.Snapshot) error {
	answer, err := c.driver.Input(ctx, InputConfig{
		Message: fmt.Sprintf("Page (1-%d)", snap.TotalPages),
		Default: strconv.Itoa(snap.Query.Page),
	})
	if err != nil {
		return err
	}
	page, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || page < 1 || page > snap.TotalPages {
		c.info(ctx, fmt.Sprintf("  %q is not a page between 1 and %d", answer, snap.TotalPages))
		return nil
	}
	_, err = ctrl.SetQuery(ctx, listing.Page(page))
	return c.fetched(ctx, err)
}

func (c *Console) search(ctx context.Context, ctrl *listing.Controller, snap listing.Snapshot) error {
	answer, err := c.driver.Input(ctx, InputConfig{
		Message: "Search",
		Default: snap.Query.Search,
		Help:    "Leave blank to clear",
	})
	if err != nil {
		return err
	}
	_, err = ctrl.SetQuery(ctx, listing.Search(answer))
	return c.fetched(ctx, err)
}

func (c *Console) filter(ctx context.Context, ctrl *listing.Controller, res resources.Resource, snap listing.Snapshot) error {
	idx, err := c.driver.Select(ctx, SelectConfig{
		Message:      "Filter by " + res.FilterKey,
		Options:      res.FilterOptions,
		DefaultIndex: indexOf(res.FilterOptions, snap.Query.Filter(res.FilterKey)),
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(res.FilterOptions) {
		return nil
	}
	_, err = ctrl.SetQuery(ctx, listing.Filter(res.FilterKey, res.FilterOptions[idx]))
	return c.fetched(ctx, err)
}

// pick asks for one record of the current page. A nil record means the user
// cancelled.
func (c *Console) pick(ctx context.Context, res resources.Resource, snap listing.Snapshot, message string) (client.Record, error) {
	options := make([]string, 0, len(snap.Items)+1)
	for i, item := range snap.Items {
		label := fmt.Sprintf("%d. %s", i+1, c.clean(recordLabel(res, item)))
		options = append(options, label)
	}
	options = append(options, "Cancel")

	idx, err := c.driver.Select(ctx, SelectConfig{Message: message, Options: options})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(snap.Items) {
		return nil, nil
	}
	return snap.Items[idx], nil
}

func recordLabel(res resources.Resource, record client.Record) string {
	parts := make([]string, 0, 2)
	for _, col := range res.Columns {
		parts = append(parts, col.Render(record))
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " - ")
}

func (c *Console) view(ctx context.Context, res resources.Resource, snap listing.Snapshot) error {
	record, err := c.pick(ctx, res, snap, "View which "+strings.ToLower(res.Singular)+"?")
	if err != nil || record == nil {
		return err
	}
	c.renderRecord(res, record)
	return nil
}

// edit opens the resource form in create mode (record == nil) or edit mode
// and refreshes the list once the form is saved.
func (c *Console) edit(ctx context.Context, ctrl *listing.Controller, res resources.Resource, record client.Record) error {
	f := form.New(res.Form, c.api,
		form.WithSession(c.sess),
		form.WithNotifier(c),
		form.WithLogger(c.logger),
	)

	mode := form.ModeEdit
	if record == nil {
		mode = form.ModeCreate
		record = client.Record{}
		if _, ok := res.Form.Field("userId"); ok {
			if user, ok := c.sess.User(); ok {
				record["userId"] = user.ID
			}
		}
	}
	if err := f.Open(mode, record); err != nil {
		c.Notify(notify.LevelError, err.Error())
		return nil
	}

	saved, err := c.fill(ctx, f)
	if err != nil {
		return err
	}
	if saved == nil {
		return nil
	}
	_, err = ctrl.Refresh(ctx)
	return c.fetched(ctx, err)
}

func (c *Console) remove(ctx context.Context, ctrl *listing.Controller, res resources.Resource, snap listing.Snapshot) error {
	record, err := c.pick(ctx, res, snap, "Delete which "+strings.ToLower(res.Singular)+"?")
	if err != nil || record == nil {
		return err
	}
	ok, err := c.driver.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf("Delete %s %q?", strings.ToLower(res.Singular), c.clean(recordLabel(res, record))),
	})
	if err != nil || !ok {
		return err
	}

	if err := c.api.Remove(ctx, res.Endpoint, client.ID(record)); err != nil {
		env := apierr.Normalize(err)
		if env.Unauthorized() {
			return c.expired(ctx)
		}
		c.logger.Error().Str("resource", res.Name).Int("status", env.Status).Str("message", env.Message).Msg("delete failed")
		c.Notify(notify.LevelError, fmt.Sprintf("Failed to delete %s", strings.ToLower(res.Singular)))
		return nil
	}
	c.Notify(notify.LevelSuccess, res.Singular+" deleted successfully")
	_, err = ctrl.Refresh(ctx)
	return c.fetched(ctx, err)
}
