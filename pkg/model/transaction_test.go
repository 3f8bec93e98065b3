package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalTransactionEvent(t *testing.T) {
	data := []byte(`{
		"transactionId": "7f8d3a",
		"name": "Jane Roe",
		"address": "1 Main St",
		"city": "Springfield",
		"state": "IL",
		"age": 44,
		"transaction": 9500,
		"bankId": "DEUTDEFF",
		"createdAt": "2024-01-01T00:00:00Z"
	}`)

	ev, err := UnmarshalTransactionEvent(data)
	require.NoError(t, err)

	assert.Equal(t, "7f8d3a", ev.TransactionID)
	assert.Equal(t, "Jane Roe", ev.Name)
	assert.Equal(t, "Springfield", ev.City)
	assert.Equal(t, 44, ev.Age)
	assert.Equal(t, int64(9500), ev.Transaction)
	assert.Equal(t, "DEUTDEFF", ev.BankID)
	assert.Equal(t, "2024-01-01T00:00:00Z", ev.CreatedAt)
}

func TestUnmarshalTransactionEvent__Missing_Amount(t *testing.T) {
	data := []byte(`{"transactionId": "7f8d3a", "createdAt": "2024-01-01T00:00:00Z"}`)

	_, err := UnmarshalTransactionEvent(data)
	assert.True(t, errors.Is(err, ErrNoTransactionAmount))
}

func TestUnmarshalTransactionEvent__Non_Numeric_Amount(t *testing.T) {
	data := []byte(`{"transactionId": "7f8d3a", "transaction": "a lot"}`)

	_, err := UnmarshalTransactionEvent(data)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoTransactionAmount))
}

func TestUnmarshalTransactionEvent__Not_JSON(t *testing.T) {
	_, err := UnmarshalTransactionEvent([]byte("not json at all"))
	assert.Error(t, err)
}
