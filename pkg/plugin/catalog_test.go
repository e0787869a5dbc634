package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func factoryFor(name string) Factory {
	return func(ctx *Context) (Plugin, error) { return newMockPlugin(name, TypeVideo), nil }
}

func TestCatalog_RegisterFactory(t *testing.T) {
	tests := []struct {
		name        string
		info        FactoryInfo
		wantErr     bool
		errContains string
	}{
		{
			name: "valid registration",
			info: FactoryInfo{
				Name:        "es.upv.paella.mp4VideoFormat",
				Description: "A test format",
				Priority:    PriorityDefault,
				Factory:     factoryFor("es.upv.paella.mp4VideoFormat"),
			},
			wantErr: false,
		},
		{
			name: "empty name",
			info: FactoryInfo{
				Name:    "",
				Factory: func(ctx *Context) (Plugin, error) { return nil, nil },
			},
			wantErr:     true,
			errContains: "name cannot be empty",
		},
		{
			name: "nil factory",
			info: FactoryInfo{
				Name:    "test-plugin",
				Factory: nil,
			},
			wantErr:     true,
			errContains: "factory cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := NewCatalog()
			err := catalog.RegisterFactory(tt.info)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCatalog_PriorityOverride(t *testing.T) {
	catalog := NewCatalog()

	err := catalog.RegisterFactory(FactoryInfo{
		Name:        "playPause",
		Description: "Default play/pause button",
		Priority:    PriorityDefault,
		Factory:     factoryFor("default"),
	})
	require.NoError(t, err)

	info := catalog.Get("playPause")
	require.NotNil(t, info)
	assert.Equal(t, PriorityDefault, info.Priority)

	err = catalog.RegisterFactory(FactoryInfo{
		Name:        "playPause",
		Description: "Branded play/pause button",
		Priority:    PriorityOverride,
		Factory:     factoryFor("override"),
	})
	require.NoError(t, err)

	info = catalog.Get("playPause")
	require.NotNil(t, info)
	assert.Equal(t, PriorityOverride, info.Priority)
	assert.Equal(t, "Branded play/pause button", info.Description)

	p, err := info.Factory(nil)
	require.NoError(t, err)
	assert.Equal(t, "override", p.Name())
	assert.Len(t, catalog.Names(), 1)
}

func TestCatalog_LowerPrioritySkipped(t *testing.T) {
	catalog := NewCatalog()

	err := catalog.RegisterFactory(FactoryInfo{
		Name:        "playPause",
		Description: "High priority",
		Priority:    PriorityOverride,
		Factory:     factoryFor("high"),
	})
	require.NoError(t, err)

	err = catalog.RegisterFactory(FactoryInfo{
		Name:        "playPause",
		Description: "Low priority",
		Priority:    PriorityDefault,
		Factory:     factoryFor("low"),
	})
	require.NoError(t, err) // No error, just skipped

	info := catalog.Get("playPause")
	require.NotNil(t, info)
	assert.Equal(t, "High priority", info.Description)
}

func TestCatalog_List(t *testing.T) {
	catalog := NewCatalog()

	catalog.RegisterFactory(FactoryInfo{Name: "secondaryStreams", Order: 90, Factory: factoryFor("secondaryStreams")})
	catalog.RegisterFactory(FactoryInfo{Name: "hls", Order: 10, Factory: factoryFor("hls")})
	catalog.RegisterFactory(FactoryInfo{Name: "playPause", Order: 50, Factory: factoryFor("playPause")})
	catalog.RegisterFactory(FactoryInfo{Name: "mp4", Order: 50, Factory: factoryFor("mp4")})

	// List should be ordered by Order, then by name
	list := catalog.List()
	require.Len(t, list, 4)

	assert.Equal(t, "hls", list[0].Name)              // Order 10
	assert.Equal(t, "mp4", list[1].Name)              // Order 50, "m" < "p"
	assert.Equal(t, "playPause", list[2].Name)        // Order 50, "p"
	assert.Equal(t, "secondaryStreams", list[3].Name) // Order 90
}

func TestCatalog_CreateAll(t *testing.T) {
	catalog := NewCatalog()
	created := make([]string, 0)

	catalog.RegisterFactory(FactoryInfo{
		Name:  "first",
		Order: 10,
		Factory: func(ctx *Context) (Plugin, error) {
			created = append(created, "first")
			return newMockPlugin("first", TypeVideo), nil
		},
	})
	catalog.RegisterFactory(FactoryInfo{
		Name:  "second",
		Order: 20,
		Factory: func(ctx *Context) (Plugin, error) {
			created = append(created, "second")
			return newMockPlugin("second", TypeButton), nil
		},
	})

	registry := NewRegistry()
	err := catalog.CreateAll(NewContext(zap.NewNop(), nil, "", nil), registry)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, created)
	assert.Equal(t, []string{"first", "second"}, registry.Names())
}

func TestCatalog_CreateAll_FactoryError(t *testing.T) {
	catalog := NewCatalog()

	catalog.RegisterFactory(FactoryInfo{Name: "first", Order: 10, Factory: factoryFor("first")})
	catalog.RegisterFactory(FactoryInfo{
		Name:  "second",
		Order: 20,
		Factory: func(ctx *Context) (Plugin, error) {
			return nil, errors.New("creation failed")
		},
	})

	registry := NewRegistry()
	err := catalog.CreateAll(nil, registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create plugin second")
	assert.Equal(t, []string{"first"}, registry.Names())
}

func TestCatalog_CreateAll_DuplicateInstance(t *testing.T) {
	catalog := NewCatalog()
	catalog.RegisterFactory(FactoryInfo{Name: "a", Order: 10, Factory: factoryFor("same")})
	catalog.RegisterFactory(FactoryInfo{Name: "b", Order: 20, Factory: factoryFor("same")})

	err := catalog.CreateAll(nil, NewRegistry())
	require.Error(t, err)

	var dup *DuplicateNameError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "same", dup.Name)
}

func TestCatalog_Get_NotFound(t *testing.T) {
	catalog := NewCatalog()
	assert.Nil(t, catalog.Get("nonexistent"))
}

func TestCatalog_Clear(t *testing.T) {
	catalog := NewCatalog()
	catalog.RegisterFactory(FactoryInfo{Name: "test", Factory: factoryFor("test")})
	assert.Len(t, catalog.Names(), 1)

	catalog.Clear()

	assert.Len(t, catalog.Names(), 0)
	assert.Nil(t, catalog.Get("test"))
}

func TestCatalog_DefaultOrder(t *testing.T) {
	catalog := NewCatalog()

	err := catalog.RegisterFactory(FactoryInfo{Name: "test", Factory: factoryFor("test")})
	require.NoError(t, err)

	info := catalog.Get("test")
	require.NotNil(t, info)
	assert.Equal(t, 50, info.Order, "default order should be 50")
}

func TestGlobalCatalog(t *testing.T) {
	ClearGlobal()
	defer ClearGlobal()

	err := RegisterFactory(FactoryInfo{
		Name:        "global-test",
		Description: "Testing global catalogue",
		Factory:     factoryFor("global"),
	})
	require.NoError(t, err)

	info := GetFactory("global-test")
	require.NotNil(t, info)
	assert.Equal(t, "Testing global catalogue", info.Description)
	assert.Len(t, ListFactories(), 1)

	registry := NewRegistry()
	require.NoError(t, CreateAll(nil, registry))
	require.NotNil(t, registry.Get("global"))
}
