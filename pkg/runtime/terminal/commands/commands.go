package commands

import (
	"context"

	"github.com/de-tools/export-consolidator/pkg/runtime/app"
	"github.com/de-tools/export-consolidator/pkg/services/config"
)

// AppLoader builds the wired application from the flags of the root command.
type AppLoader func(ctx context.Context) (*app.App, error)

// resolveOwners combines named registry owners with bare export ids. With
// neither given every registered owner is returned.
func resolveOwners(ctx context.Context, names, ids []string, registry func() (config.OwnerRegistry, error)) ([]config.Owner, error) {
	var owners []config.Owner
	for _, id := range ids {
		owners = append(owners, config.Owner{Name: id, ExportID: id})
	}
	if len(ids) > 0 && len(names) == 0 {
		return owners, nil
	}

	r, err := registry()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return config.AllOwners(ctx, r)
	}
	for _, name := range names {
		o, err := r.GetOwner(ctx, name)
		if err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, nil
}
