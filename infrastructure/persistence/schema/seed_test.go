package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lattice/domain/core/entities"
	"lattice/domain/core/policies"
	"lattice/domain/core/validators"
	"lattice/domain/core/valueobjects"
	"lattice/infrastructure/persistence/memory"
)

const seedYAML = `workspace:
  name: Seeded
  owner: user-seed
schema:
  name: initial
  entity_types:
    - name: person
      display_name: Person
      properties:
        - name: age
          type: integer
          minimum: 0
    - name: company
  edge_types:
    - name: works_at
      source_types: [person]
      target_types: [company]
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func seedExistingWorkspace(t *testing.T, store *memory.Store) *entities.Workspace {
	t.Helper()
	workspace, err := entities.NewWorkspace("Existing", "user-owner")
	require.NoError(t, err)
	require.NoError(t, store.WorkspaceRepository().Save(context.Background(), workspace))
	return workspace
}

func newTestSeeder(t *testing.T) (*Seeder, *memory.Store) {
	t.Helper()
	store := memory.NewStore(policies.NewTraversalPolicy(nil), zap.NewNop())
	seeder := NewSeeder(
		store.WorkspaceRepository(),
		store.SchemaRepository(),
		validators.NewSchemaValidator(nil),
		zap.NewNop(),
	)
	return seeder, store
}

func TestSeeder_EmptyPathDisablesSeeding(t *testing.T) {
	seeder, _ := newTestSeeder(t)
	require.NoError(t, seeder.Apply(context.Background(), "", ""))
}

func TestSeeder_CreatesWorkspaceAndPublishes(t *testing.T) {
	ctx := context.Background()
	seeder, store := newTestSeeder(t)
	path := writeSeedFile(t, seedYAML)
	workspaceID := valueobjects.NewWorkspaceID()

	require.NoError(t, seeder.Apply(ctx, path, workspaceID.String()))

	workspace, err := store.WorkspaceRepository().GetByID(ctx, workspaceID)
	require.NoError(t, err)
	assert.Equal(t, "Seeded", workspace.Name())
	assert.Equal(t, "user-seed", workspace.OwnerID())
	assert.Equal(t, 1, workspace.ActiveSchemaVersion())

	def, err := store.SchemaRepository().GetVersion(ctx, workspaceID, 1)
	require.NoError(t, err)
	assert.Equal(t, "initial", def.Name)
	assert.Equal(t, "user-seed", def.PublishedBy)
	assert.True(t, def.HasEntityType("person"))
	assert.True(t, def.HasEdgeType("works_at"))
}

func TestSeeder_SkipsWhenSchemaAlreadyActive(t *testing.T) {
	ctx := context.Background()
	seeder, store := newTestSeeder(t)
	path := writeSeedFile(t, seedYAML)
	workspaceID := valueobjects.NewWorkspaceID()

	require.NoError(t, seeder.Apply(ctx, path, workspaceID.String()))
	require.NoError(t, seeder.Apply(ctx, path, workspaceID.String()))

	versions, err := store.SchemaRepository().ListVersions(ctx, workspaceID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestSeeder_UsesExistingWorkspace(t *testing.T) {
	ctx := context.Background()
	seeder, store := newTestSeeder(t)
	path := writeSeedFile(t, seedYAML)

	existing := seedExistingWorkspace(t, store)

	require.NoError(t, seeder.Apply(ctx, path, existing.ID().String()))

	workspace, err := store.WorkspaceRepository().GetByID(ctx, existing.ID())
	require.NoError(t, err)
	// The seed must not rename an existing workspace
	assert.Equal(t, existing.Name(), workspace.Name())
	assert.Equal(t, 1, workspace.ActiveSchemaVersion())

	def, err := store.SchemaRepository().GetVersion(ctx, existing.ID(), 1)
	require.NoError(t, err)
	assert.Equal(t, existing.OwnerID(), def.PublishedBy)
}

func TestSeeder_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	seeder, _ := newTestSeeder(t)
	workspaceID := valueobjects.NewWorkspaceID().String()

	err := seeder.Apply(ctx, writeSeedFile(t, seedYAML), "")
	assert.Error(t, err)

	err = seeder.Apply(ctx, writeSeedFile(t, seedYAML), "not-a-uuid")
	assert.Error(t, err)

	err = seeder.Apply(ctx, filepath.Join(t.TempDir(), "absent.yaml"), workspaceID)
	assert.Error(t, err)

	err = seeder.Apply(ctx, writeSeedFile(t, "schema: [broken"), workspaceID)
	assert.Error(t, err)

	noTypes := "workspace:\n  name: Empty\n  owner: user-seed\nschema:\n  name: empty\n"
	err = seeder.Apply(ctx, writeSeedFile(t, noTypes), workspaceID)
	assert.Error(t, err)

	// Structural validation runs before anything is written
	badType := `workspace:
  name: Seeded
  owner: user-seed
schema:
  entity_types:
    - name: person
      properties:
        - name: age
          type: counter
`
	err = seeder.Apply(ctx, writeSeedFile(t, badType), workspaceID)
	assert.Error(t, err)
}
