package entities

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWatchedEvent(t *testing.T) {
	testData := []struct {
		name     string
		value    string
		expected WatchedEvent
		valid    bool
	}{
		{name: "valid", value: "Kibble.TokensMinted", expected: WatchedEvent{ContractName: "Kibble", EventKey: "TokensMinted"}, valid: true},
		{name: "trimmed", value: " Kibble.TokensBurned ", expected: WatchedEvent{ContractName: "Kibble", EventKey: "TokensBurned"}, valid: true},
		{name: "missing key", value: "Kibble.", valid: false},
		{name: "missing contract", value: ".TokensMinted", valid: false},
		{name: "no separator", value: "TokensMinted", valid: false},
		{name: "too many parts", value: "A.Kibble.TokensMinted", valid: false},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			got, err := ParseWatchedEvent(testRun.value)
			if !testRun.valid {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidWatchedEvent))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testRun.expected, got)
		})
	}
}

func TestParseWatchedEvents_rejectsDuplicatesAndEmpty(t *testing.T) {
	_, err := ParseWatchedEvents([]string{"Kibble.TokensMinted", "Kibble.TokensMinted"})
	require.ErrorIs(t, err, ErrInvalidWatchedEvent)

	_, err = ParseWatchedEvents(nil)
	require.ErrorIs(t, err, ErrInvalidWatchedEvent)

	watched, err := ParseWatchedEvents([]string{"Kibble.TokensMinted", "Kibble.TokensBurned"})
	require.NoError(t, err)
	assert.Len(t, watched, 2)
}

func TestWatchedEvent_QualifiedType(t *testing.T) {
	we := WatchedEvent{ContractName: "Kibble", EventKey: "TokensDeposited"}
	assert.Equal(t, "A.f8d6e0586b0a20c7.Kibble.TokensDeposited", we.QualifiedType("0xf8d6e0586b0a20c7"))
	assert.Equal(t, "A.f8d6e0586b0a20c7.Kibble.TokensDeposited", we.QualifiedType("f8d6e0586b0a20c7"))
}

func TestBlockRange_Validate(t *testing.T) {
	require.NoError(t, BlockRange{FromBlock: 10, ToBlock: 10}.Validate())
	require.NoError(t, BlockRange{FromBlock: 10, ToBlock: 20}.Validate())
	require.ErrorIs(t, BlockRange{FromBlock: 21, ToBlock: 20}.Validate(), ErrInvalidRange)
}

func TestDecodedEvent_DocumentID(t *testing.T) {
	ev := DecodedEvent{TransactionID: "abcd", EventIndex: 3}
	assert.Equal(t, "abcd-3", ev.DocumentID())
}
