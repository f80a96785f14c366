package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptStringTriState(t *testing.T) {
	type doc struct {
		ImageURL OptString `json:"imageUrl"`
	}

	var absent doc
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.False(t, absent.ImageURL.Set)

	var null doc
	require.NoError(t, json.Unmarshal([]byte(`{"imageUrl":null}`), &null))
	assert.True(t, null.ImageURL.Set)
	assert.Nil(t, null.ImageURL.Value)

	var empty doc
	require.NoError(t, json.Unmarshal([]byte(`{"imageUrl":""}`), &empty))
	assert.True(t, empty.ImageURL.Set)
	assert.Nil(t, empty.ImageURL.Value)

	var set doc
	require.NoError(t, json.Unmarshal([]byte(`{"imageUrl":"https://x/y.png"}`), &set))
	assert.True(t, set.ImageURL.Set)
	require.NotNil(t, set.ImageURL.Value)
	assert.Equal(t, "https://x/y.png", *set.ImageURL.Value)

	var bad doc
	assert.Error(t, json.Unmarshal([]byte(`{"imageUrl":42}`), &bad))
}

func TestUpdateEventRequestBinding(t *testing.T) {
	body := `{"title":"New Title","imageUrl":null}`
	var req UpdateEventRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	require.NotNil(t, req.Title)
	assert.Equal(t, "New Title", *req.Title)
	assert.Nil(t, req.Description)
	assert.True(t, req.ImageURL.Set)
	assert.Nil(t, req.ImageURL.Value)
	assert.False(t, req.TouchesFrozenFields())

	body = `{"location":"Annex"}`
	req = UpdateEventRequest{}
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.True(t, req.TouchesFrozenFields())
}
