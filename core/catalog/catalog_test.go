package catalog

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tristendillon/diagify/core/config"
	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/models"
	"github.com/tristendillon/diagify/core/store"
)

var fixture = map[string]string{
	"__init__.py": "class Ignored:\n    pass\n",
	"aws/__init__.py": `class _AWS:
    _provider = "aws"
`,
	"aws/compute.py": `from . import _AWS


class _Compute(_AWS):
    _type = "compute"


class EC2(_Compute):
    _icon = "ec2.png"


class Lambda(_Compute):
    pass


class ElasticContainerService(_Compute):
    pass


# Aliases

ECS = ElasticContainerService
count = 3
helper = len
`,
	"aws/database.py": `from . import _AWS


class Dynamodb(_AWS):
    pass
`,
	"generic/decorated.py": `import functools


def register(cls):
    return cls


@register
class Rack:
    pass


def not_a_class():
    pass
`,
	"onprem/broken.py":      "class Broken(:\n    pass\n",
	"__pycache__/cached.py": "class Stale:\n    pass\n",
	"README.md":             "not python\n",
}

var wantEntries = []string{
	"from diagrams.aws.compute import EC2",
	"from diagrams.aws.compute import ECS",
	"from diagrams.aws.compute import ElasticContainerService",
	"from diagrams.aws.compute import Lambda",
	"from diagrams.aws.compute import _AWS",
	"from diagrams.aws.compute import _Compute",
	"from diagrams.aws.database import Dynamodb",
	"from diagrams.aws.database import _AWS",
	"from diagrams.generic.decorated import Rack",
}

func writeFixture(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "diagrams")
	for rel, content := range fixture {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func testConfig(root string) config.Catalog {
	cfg := config.Default().Catalog
	cfg.Root = root
	cfg.Mode = ModeStatic
	cfg.Workers = 3
	return cfg
}

func TestWalkSkipsInitAndPycache(t *testing.T) {
	root := writeFixture(t)
	files, err := NewModuleWalker("diagrams").Walk(root)
	require.NoError(t, err)

	var modules []string
	for _, f := range files {
		modules = append(modules, f.Module)
	}
	assert.Equal(t, []string{
		"diagrams.aws.compute",
		"diagrams.aws.database",
		"diagrams.generic.decorated",
		"diagrams.onprem.broken",
	}, modules)
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "diagrams.aws.compute", ModuleName("diagrams", filepath.Join("aws", "compute.py")))
	assert.Equal(t, "diagrams.custom", ModuleName("diagrams", "custom.py"))
}

func TestTypeNames(t *testing.T) {
	names, err := TypeNames(context.Background(), []byte(fixture["aws/compute.py"]), "diagrams")
	require.NoError(t, err)
	assert.Equal(t, []string{"EC2", "ECS", "ElasticContainerService", "Lambda", "_AWS", "_Compute"}, names)

	names, err = TypeNames(context.Background(), []byte(fixture["generic/decorated.py"]), "diagrams")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rack"}, names)
}

func TestTypeNamesImportAlias(t *testing.T) {
	src := "from diagrams.aws.compute import EC2 as Server, helper\n\nAlias = Server\nOther = missing\n"
	names, err := TypeNames(context.Background(), []byte(src), "diagrams")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alias", "Server"}, names)
}

const typedModule = `from typing import Optional
from os import SEEK_SET
from diagrams.aws.compute import EC2


class Real:
    pass
`

func TestTypeNamesIgnoresForeignImports(t *testing.T) {
	names, err := TypeNames(context.Background(), []byte(typedModule), "diagrams")
	require.NoError(t, err)
	assert.Equal(t, []string{"EC2", "Real"}, names)

	names, err = TypeNames(context.Background(), []byte(typedModule), "other")
	require.NoError(t, err)
	assert.Equal(t, []string{"Real"}, names)
}

func TestTypeNamesSyntaxError(t *testing.T) {
	_, err := TypeNames(context.Background(), []byte(fixture["onprem/broken.py"]), "diagrams")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestBuildStatic(t *testing.T) {
	root := writeFixture(t)
	cat, err := NewBuilder(testConfig(root)).Build(context.Background(), root)
	require.NoError(t, err)

	if diff := cmp.Diff(wantEntries, cat.Strings()); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "diagrams", cat.Package)
	assert.True(t, cat.Contains("from diagrams.aws.database import Dynamodb"))
	assert.False(t, cat.Contains("from diagrams.aws.database import DynamoDB"))
	assert.False(t, cat.Contains("from diagrams.onprem.broken import Broken"))
}

func TestBuildIntrospectMatchesStatic(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	root := writeFixture(t)
	cfg := testConfig(root)
	cfg.Mode = ModeIntrospect
	cfg.Python = python

	cat, err := NewBuilder(cfg).Build(context.Background(), root)
	require.NoError(t, err)
	if diff := cmp.Diff(wantEntries, cat.Strings()); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultModeIsIntrospect(t *testing.T) {
	assert.Equal(t, ModeIntrospect, config.Default().Catalog.Mode)
	assert.Equal(t, ModeIntrospect, NewBuilder(config.Catalog{Package: "diagrams"}).Mode)
}

func TestDefaultBuildSkipsModulesThatFailToImport(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	root := filepath.Join(t.TempDir(), "diagrams")
	files := map[string]string{
		"__init__.py":          "",
		"aws/__init__.py":      "",
		"aws/platform_only.py": "import definitely_missing_dep\n\n\nclass OnlyOnWindows:\n    pass\n",
		"aws/typed.py":         "from typing import Optional\nfrom os import SEEK_SET\n\n\nclass Real:\n    pass\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	cfg := config.Default().Catalog
	cfg.Root = root
	cfg.Python = python
	cfg.Cache = false

	cat, err := Load(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"from diagrams.aws.typed import Real"}, cat.Strings())
}

func TestIntrospectFingerprintIncludesInterpreter(t *testing.T) {
	root := writeFixture(t)
	files, err := NewModuleWalker("diagrams").Walk(root)
	require.NoError(t, err)

	build := func(mode, python string) string {
		cfg := testConfig(root)
		cfg.Mode = mode
		cfg.Python = python
		return NewBuilder(cfg).fingerprint(files)
	}

	assert.Equal(t, build(ModeStatic, "/opt/a/python3"), build(ModeStatic, "/opt/b/python3"))
	assert.NotEqual(t, build(ModeIntrospect, "/opt/a/python3"), build(ModeIntrospect, "/opt/b/python3"))
	assert.NotEqual(t, build(ModeStatic, "/opt/a/python3"), build(ModeIntrospect, "/opt/a/python3"))
}

func TestBuildHonorsCancellation(t *testing.T) {
	root := writeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(testConfig(root)).Build(ctx, root)
	require.Error(t, err)
}

func TestLoadUsesCache(t *testing.T) {
	root := writeFixture(t)
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	cache := NewCache(db)
	ctx := context.Background()
	cfg := testConfig(root)

	first, err := Load(ctx, cfg, cache)
	require.NoError(t, err)
	second, err := Load(ctx, cfg, cache)
	require.NoError(t, err)
	assert.Equal(t, first.Strings(), second.Strings())

	m := cache.Metrics()
	assert.EqualValues(t, 1, m.Misses)
	assert.EqualValues(t, 1, m.Hits)
	assert.InDelta(t, 50.0, m.HitRate, 0.001)

	// Editing a module invalidates the stored catalog.
	p := filepath.Join(root, "aws", "database.py")
	require.NoError(t, os.WriteFile(p, []byte(fixture["aws/database.py"]+"\n\nclass DocumentDB(_AWS):\n    pass\n"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(p, future, future))

	third, err := Load(ctx, cfg, cache)
	require.NoError(t, err)
	assert.True(t, third.Contains("from diagrams.aws.database import DocumentDB"))

	m = cache.Metrics()
	assert.EqualValues(t, 2, m.Misses)
	assert.EqualValues(t, 1, m.Invalidations)
}

func TestLoadWithoutCache(t *testing.T) {
	root := writeFixture(t)
	cfg := testConfig(root)
	cfg.Cache = false
	cat, err := Load(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, len(wantEntries), cat.Len())
}

func TestLoadRejectsMissingRoot(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope"))
	_, err := Load(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeCatalog))
}

func TestLocate(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	inst, err := Locate(context.Background(), python, "json")
	require.NoError(t, err)
	assert.Equal(t, "json", filepath.Base(inst.Root))

	_, err = Locate(context.Background(), python, "surely_not_an_installed_package")
	require.Error(t, err)
	assert.True(t, derrors.IsCode(err, derrors.CodeCatalog))
}

func TestSearch(t *testing.T) {
	entries := make([]models.CatalogEntry, len(wantEntries))
	for i, e := range wantEntries {
		entries[i] = models.CatalogEntry(e)
	}
	cat := models.NewCatalog("diagrams", entries)

	got := Search(cat, "dynamo", 3)
	require.NotEmpty(t, got)
	assert.Equal(t, models.CatalogEntry("from diagrams.aws.database import Dynamodb"), got[0])

	assert.Len(t, Search(cat, "", 2), 2)
	assert.Empty(t, Search(cat, "zzzzqqq", 5))
	assert.Nil(t, Search(nil, "x", 5))
}
