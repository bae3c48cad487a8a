package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/relate"
	"github.com/hupe1980/relate/config"
	"github.com/hupe1980/relate/params"
	"github.com/hupe1980/relate/store"
)

var soap = params.MustNew(map[string]any{"rcut": 5.0, "nmax": 9})

// seedStore writes two descriptions and one collection result into a
// local store under a temporary directory.
func seedStore(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "store")
	ctx := context.Background()
	st, err := relate.OpenStore(ctx, config.StoreConfig{
		Backend:     config.BackendLocal,
		Root:        root,
		Codec:       "json",
		Compression: "none",
	})
	require.NoError(t, err)
	defer st.Close()

	_, err = st.StoreDescription(ctx, [][]float64{{1, 2}}, nil, "a1", "soap", soap)
	require.NoError(t, err)
	_, err = st.StoreDescription(ctx, [][]float64{{3, 4}}, nil, "a2", "soap", soap)
	require.NoError(t, err)
	_, err = st.StoreCollectionResult(ctx, map[string]float64{"x": 1}, map[string]int{"n": 2},
		"alloys", "ler", store.Ref("soap", soap), params.MustNew(map[string]any{"epsilon": 0.3}))
	require.NoError(t, err)

	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "relate", cmd.Use)

	for _, name := range []string{"list", "show", "clear"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	root := seedStore(t)
	_, err := execute(t, "list", "--root", root, "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestListText(t *testing.T) {
	root := seedStore(t)

	out, err := execute(t, "list", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "NAMESPACE")
	assert.Contains(t, out, "a1")
	assert.Contains(t, out, "a2")
	assert.Contains(t, out, "alloys")
}

func TestListJSON(t *testing.T) {
	root := seedStore(t)

	out, err := execute(t, "list", "--root", root, "--format", "json", "--namespace", "Descriptions")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []RecordSummary `json:"data"`
	}
	require.NoError(t, gojson.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	for _, r := range resp.Data {
		assert.Equal(t, "Descriptions", r.Namespace)
		assert.Equal(t, "soap", r.Key2)
	}
}

func TestListInvalidNamespace(t *testing.T) {
	root := seedStore(t)
	_, err := execute(t, "list", "--root", root, "--namespace", "Other")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestListMissingRoot(t *testing.T) {
	_, err := execute(t, "list", "--root", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShow(t *testing.T) {
	root := seedStore(t)

	out, err := execute(t, "show", "Descriptions", "a1", "soap",
		"--root", root, "-p", "rcut=5", "-p", "nmax=9", "--payload", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Record  RecordSummary `json:"record"`
			Payload [][]float64   `json:"payload"`
		} `json:"data"`
	}
	require.NoError(t, gojson.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "a1", resp.Data.Record.Key1)
	assert.Equal(t, [][]float64{{1, 2}}, resp.Data.Payload)
}

func TestShowCollection(t *testing.T) {
	root := seedStore(t)

	out, err := execute(t, "show", "Collections", "alloys", "ler", "--root", root,
		"--based-on", "soap", "--based-on-param", "rcut=5", "--based-on-param", "nmax=9",
		"-p", "epsilon=0.3")
	require.NoError(t, err)
	assert.Contains(t, out, "Record:  Collections/alloys/ler")
	assert.Contains(t, out, "BasedOn: soap(")
	assert.Contains(t, out, `"n":2`)
}

func TestShowNotFound(t *testing.T) {
	root := seedStore(t)

	_, err := execute(t, "show", "Descriptions", "a1", "soap", "--root", root, "-p", "rcut=6", "-p", "nmax=9")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, GetExitCode(err))
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestShowInvalidParams(t *testing.T) {
	root := seedStore(t)

	_, err := execute(t, "show", "Descriptions", "a1", "soap", "--root", root, "-p", "rcut")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestClear(t *testing.T) {
	root := seedStore(t)

	out, err := execute(t, "clear", "description", "a1", "soap", "--root", root, "-p", "rcut=5", "-p", "nmax=9")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared a1/soap")

	_, err = execute(t, "clear", "description", "a1", "soap", "--root", root, "-p", "rcut=5", "-p", "nmax=9")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, GetExitCode(err))

	_, err = execute(t, "clear", "method", "alloys", "ler", "--root", root)
	require.NoError(t, err)

	out, err = execute(t, "list", "--root", root, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []RecordSummary `json:"data"`
	}
	require.NoError(t, gojson.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "a2", resp.Data[0].Key1)
}

func TestClearAllRequiresConfirmation(t *testing.T) {
	root := seedStore(t)

	_, err := execute(t, "clear", "all", "--root", root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "clear", "all", "--root", root, "--yes")
	require.NoError(t, err)

	out, err := execute(t, "list", "--root", root, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []RecordSummary `json:"data"`
	}
	require.NoError(t, gojson.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Data)
}

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"n=3", "eps=0.25", "exact=true", "w=1,2.5", "name=soap"})
	require.NoError(t, err)

	n, ok := p.Int("n")
	require.True(t, ok)
	assert.Equal(t, int64(3), n)

	eps, ok := p.Float("eps")
	require.True(t, ok)
	assert.InDelta(t, 0.25, eps, 1e-12)

	name, ok := p.Text("name")
	require.True(t, ok)
	assert.Equal(t, "soap", name)

	assert.Equal(t, []float64{1, 2.5}, parseValue("1,2.5"))
	assert.Equal(t, "a,b", parseValue("a,b"))
	assert.Equal(t, true, parseValue("true"))

	empty, err := parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = parseParams([]string{"=1"})
	require.Error(t, err)
}

func TestBasedOn(t *testing.T) {
	ref, err := basedOn("", nil)
	require.NoError(t, err)
	assert.Nil(t, ref)

	_, err = basedOn("", []string{"a=1"})
	require.Error(t, err)

	ref, err = basedOn("soap", []string{"rcut=5"})
	require.NoError(t, err)
	assert.Equal(t, "soap", ref.Name)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitNotFound, GetExitCode(WrapExitError(ExitNotFound, "x", store.ErrNotFound)))

	wrapped := WrapExitError(ExitCommandError, "bad", errors.New("flag"))
	assert.Equal(t, "bad: flag", wrapped.Error())
	assert.Equal(t, "bad", (&ExitError{Message: "bad"}).Error())
}

func TestOutputFormatterJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Success(map[string]string{"result": "ok"}, nil))

	var resp Response
	require.NoError(t, gojson.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}
