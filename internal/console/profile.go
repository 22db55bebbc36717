package console

import (
	"context"

	"github.com/goliatone/go-leadconsole/pkg/apierr"
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/form"
	"github.com/goliatone/go-leadconsole/pkg/notify"
	"github.com/goliatone/go-leadconsole/pkg/resources"
)

// profile edits the signed-in user and refreshes the stored session user
// after a save.
func (c *Console) profile(ctx context.Context) error {
	user, ok := c.sess.User()
	if !ok || user.ID == "" {
		c.Notify(notify.LevelError, "No signed-in user")
		return nil
	}

	def := resources.ProfileForm()
	record, err := c.api.Get(ctx, def.Endpoint, user.ID)
	if err != nil {
		env := apierr.Normalize(err)
		if env.Unauthorized() {
			return c.expired(ctx)
		}
		c.logger.Error().Int("status", env.Status).Str("message", env.Message).Msg("load profile")
		c.Notify(notify.LevelError, "Failed to load profile")
		return nil
	}

	f := form.New(def, c.api,
		form.WithSession(c.sess),
		form.WithNotifier(c),
		form.WithLogger(c.logger),
		form.OnSaved(func(_ form.Mode, saved client.Record) {
			if client.ID(saved) == "" {
				return
			}
			if err := c.sess.Begin(ctx, c.sess.Token(), userFrom(saved)); err != nil {
				c.logger.Error().Err(err).Msg("refresh session user")
			}
		}),
	)
	if err := f.Open(form.ModeEdit, record); err != nil {
		c.Notify(notify.LevelError, err.Error())
		return nil
	}
	c.renderRecord(resources.Resource{Singular: "Profile", Details: profileDetails}, record)
	_, err = c.fill(ctx, f)
	return err
}

var profileDetails = []resources.Detail{
	{Label: "First Name", Field: "firstName"},
	{Label: "Last Name", Field: "lastName"},
	{Label: "Email", Field: "email"},
	{Label: "Role", Field: "role"},
}
