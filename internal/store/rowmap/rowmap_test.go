package rowmap

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
)

// fakeRow asigna valores en orden a los destinos de Scan.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.vals[i].(int64)
		case *int:
			*p = r.vals[i].(int)
		case *string:
			*p = r.vals[i].(string)
		case *[]byte:
			*p = r.vals[i].([]byte)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		case **time.Time:
			if r.vals[i] == nil {
				*p = nil
			} else {
				t := r.vals[i].(time.Time)
				*p = &t
			}
		case **int64:
			if r.vals[i] == nil {
				*p = nil
			} else {
				v := r.vals[i].(int64)
				*p = &v
			}
		default:
			return errors.New("unsupported dest")
		}
	}
	return nil
}

func TestColumns(t *testing.T) {
	require.Equal(t, "c.id, c.user_id, c.osm_changeset_id, c.comment, c.status, c.created_at, c.sent_at", ChangesetColumns("c."))
	require.Contains(t, UserColumns(""), "token_expires_at")
}

func TestScanUser_DecryptsTokens(t *testing.T) {
	box, err := secretbox.FromSecret("k")
	require.NoError(t, err)
	sealed, err := SealTokens(box, repository.SaveUserInput{AccessToken: "acc", RefreshToken: ""})
	require.NoError(t, err)
	require.NotEqual(t, "acc", sealed.Access)
	require.Empty(t, sealed.Refresh)

	now := time.Now().UTC()
	u, err := ScanUser(fakeRow{vals: []any{int64(1), int64(99), "me", sealed.Access, sealed.Refresh, nil, now, now}}, box)
	require.NoError(t, err)
	require.Equal(t, "acc", u.AccessToken)
	require.Nil(t, u.TokenExpiresAt)
	require.Equal(t, int64(99), u.OSMID)
}

func TestScanChangesetSummary(t *testing.T) {
	now := time.Now().UTC()
	sum, err := ScanChangesetSummary(fakeRow{vals: []any{int64(3), int64(1), int64(555), "c", "sent", now, now, 4}})
	require.NoError(t, err)
	require.Equal(t, repository.StatusSent, sum.Status)
	require.Equal(t, int64(555), *sum.OSMChangesetID)
	require.Equal(t, 4, sum.ChangesCount)
}

func TestTagsCodec(t *testing.T) {
	s, err := EncodeTags(nil)
	require.NoError(t, err)
	require.Equal(t, "{}", s)

	s, err = EncodeTags(map[string]string{"lanes": "2"})
	require.NoError(t, err)
	back, err := DecodeTags([]byte(s))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"lanes": "2"}, back)

	empty, err := DecodeTags(nil)
	require.NoError(t, err)
	require.NotNil(t, empty)

	_, err = DecodeTags([]byte("not json"))
	require.Error(t, err)
}

func TestScanRoadChange(t *testing.T) {
	rc, err := ScanRoadChange(fakeRow{vals: []any{int64(1), int64(2), int64(3), []byte(`{}`), []byte(`{"lanes":"3"}`), "modify"}})
	require.NoError(t, err)
	require.Empty(t, rc.OldTags)
	require.Equal(t, "3", rc.NewTags["lanes"])
}

func TestChangeTypeDefault(t *testing.T) {
	require.Equal(t, "modify", ChangeType(""))
	require.Equal(t, "create", ChangeType("create"))
}
