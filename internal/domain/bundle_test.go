package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBundle_TipTransaction(t *testing.T) {
	t.Run("empty bundle has no tip transaction", func(t *testing.T) {
		b := &Bundle{}
		assert.Nil(t, b.TipTransaction())
	})

	t.Run("last transaction not marked as tip returns nil", func(t *testing.T) {
		b := &Bundle{Transactions: []Transaction{{SourceOpportunity: uuid.New(), IsTip: false}}}
		assert.Nil(t, b.TipTransaction())
	})

	t.Run("terminal tip transaction is returned", func(t *testing.T) {
		tip := Transaction{IsTip: true, Payload: []byte("tip")}
		b := &Bundle{Transactions: []Transaction{
			{SourceOpportunity: uuid.New()},
			tip,
		}}
		got := b.TipTransaction()
		if assert.NotNil(t, got) {
			assert.True(t, got.IsTip)
			assert.Equal(t, []byte("tip"), got.Payload)
		}
	})
}
