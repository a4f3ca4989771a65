package fetlife

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhoResolve(t *testing.T) {
	anonymous := NewAccount("acct")
	account := &Account{Id: "acct", UserId: 4242}

	_, err := Me().resolve(anonymous)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	id, err := Me().resolve(account)
	require.NoError(t, err)
	require.Equal(t, int64(4242), id)

	id, err = ByString("  ").resolve(account)
	require.NoError(t, err)
	require.Equal(t, int64(4242), id)

	id, err = ByID(7).resolve(anonymous)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)

	id, err = ByString(" 0042 ").resolve(account)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	for _, who := range []Who{ByString("99999999999999999999"), ByString("0"), ByString("000"), ByID(0), ByID(-3)} {
		_, err = who.resolve(account)
		var invalid *InvalidUserIdError
		require.True(t, errors.As(err, &invalid), who.raw)
	}

	for _, nick := range []string{"Kinky_Nick", "-1", "12a"} {
		_, err = ByString(nick).resolve(account)
		var unsupported *UnsupportedOperationError
		require.True(t, errors.As(err, &unsupported), nick)
	}
}

func TestRSVPStatus(t *testing.T) {
	names := []string{}
	for _, status := range RSVPStatuses {
		names = append(names, status.String())
	}
	require.Equal(t, []string{"going", "maybe", "not_going"}, names)
	require.Equal(t, "rsvp(9)", RSVPStatus(9).String())
	require.Nil(t, AttendeeSets{}.Of(RSVPStatus(9)))
}

func TestErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&TransportError{Method: "GET", Path: "/inbox", Err: cause})
	require.ErrorIs(t, err, cause)
	require.Equal(t, "fetlife transport: GET /inbox: connection reset", err.Error())

	err = &TransportError{Method: "GET", Path: "/inbox", Status: 502}
	require.Equal(t, "fetlife transport: GET /inbox: unexpected status 502", err.Error())

	require.ErrorIs(t, ErrSessionExpired, ErrNotAuthenticated)
	require.False(t, errors.Is(ErrNotAuthenticated, ErrSessionExpired))

	gap := ExtractionGap{Kind: "event", Index: 2, Href: "/events/x", Err: cause}
	require.ErrorIs(t, gap, cause)
	require.Contains(t, gap.Error(), `extract event #2 ("/events/x")`)
}
