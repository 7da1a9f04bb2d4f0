package config

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"
)

// Owner is one entity whose exports live under /{ExportID}/ on the remote store.
type Owner struct {
	Name     string
	ExportID string
	// File overrides the default target file name.
	File  string
	Label string
}

// DisplayName is the label when set, otherwise the section name.
func (o Owner) DisplayName() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Name
}

type OwnerRegistry interface {
	GetOwners(ctx context.Context) ([]string, error)
	GetOwner(ctx context.Context, name string) (Owner, error)
}

type iniRegistry struct {
	cfg *ini.File
}

// NewOwnerRegistry loads an ini file with one section per owner:
//
//	[pier-32]
//	export_id = 56571
//	label     = Pier 32
//	file      = TimeEntries.csv
func NewOwnerRegistry(path string) (OwnerRegistry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load owners file: %w", err)
	}
	return &iniRegistry{cfg: cfg}, nil
}

func (r *iniRegistry) GetOwners(_ context.Context) ([]string, error) {
	var owners []string
	for _, section := range r.cfg.Sections() {
		if section.HasKey("export_id") {
			owners = append(owners, section.Name())
		}
	}
	return owners, nil
}

func (r *iniRegistry) GetOwner(_ context.Context, name string) (Owner, error) {
	section, err := r.cfg.GetSection(name)
	if err != nil || !section.HasKey("export_id") {
		return Owner{}, fmt.Errorf("owner %s not found", name)
	}

	return Owner{
		Name:     name,
		ExportID: section.Key("export_id").String(),
		File:     section.Key("file").String(),
		Label:    section.Key("label").String(),
	}, nil
}

// AllOwners resolves every registered owner in file order.
func AllOwners(ctx context.Context, r OwnerRegistry) ([]Owner, error) {
	names, err := r.GetOwners(ctx)
	if err != nil {
		return nil, err
	}
	owners := make([]Owner, 0, len(names))
	for _, name := range names {
		o, err := r.GetOwner(ctx, name)
		if err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, nil
}
