package weights

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shadewalk/shadewalk/pkg/anthropic"
)

func TestParsePrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   RouteWeights
	}{
		{
			name:   "empty prompt",
			prompt: "",
			want:   RouteWeights{},
		},
		{
			name:   "avoid highways",
			prompt: "Please, no highways on my walk",
			want:   RouteWeights{AvoidHighways: true},
		},
		{
			name:   "shade preference",
			prompt: "keep me out of the sun",
			want:   RouteWeights{PreferShade: true, ShadePenalty: 1.0},
		},
		{
			name:   "strong shade preference",
			prompt: "I want as much shade as possible",
			want:   RouteWeights{PreferShade: true, ShadePenalty: 2.0},
		},
		{
			name:   "scenic and flat combined",
			prompt: "A scenic, flat route please",
			want: RouteWeights{
				PreferScenic:     true,
				MaxElevationGain: ptr(50.0),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrompt(tt.prompt)
			assert.Equal(t, tt.want.AvoidHighways, got.AvoidHighways)
			assert.Equal(t, tt.want.PreferScenic, got.PreferScenic)
			assert.Equal(t, tt.want.PreferShade, got.PreferShade)
			assert.Equal(t, tt.want.ShadePenalty, got.ShadePenalty)
			if tt.want.MaxElevationGain == nil {
				assert.Nil(t, got.MaxElevationGain)
			} else {
				require.NotNil(t, got.MaxElevationGain)
				assert.Equal(t, *tt.want.MaxElevationGain, *got.MaxElevationGain)
			}
		})
	}
}

func ptr(f float64) *float64 { return &f }

// mockClient stubs the message API for refiner tests.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*anthropic.MessageResponse)
	return resp, args.Error(1)
}

func TestRefiner_UsesModelOutput(t *testing.T) {
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{
			Type: "text",
			Text: `{"avoid_highways":true,"prefer_shade":true,"shade_penalty":2.5,"max_elevation_gain":30}`,
		}},
	}, nil)

	r := NewRefiner(client, "claude-haiku-4-5-20251001")
	w := r.Refine(context.Background(), "shady walk, no highways, gentle hills")

	assert.True(t, w.AvoidHighways)
	assert.True(t, w.PreferShade)
	assert.Equal(t, 2.5, w.ShadePenalty)
	require.NotNil(t, w.MaxElevationGain)
	assert.Equal(t, 30.0, *w.MaxElevationGain)
	client.AssertExpectations(t)
}

func TestRefiner_FallsBackOnError(t *testing.T) {
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	r := NewRefiner(client, "claude-haiku-4-5-20251001")
	w := r.Refine(context.Background(), "avoid highways")

	assert.True(t, w.AvoidHighways)
	client.AssertExpectations(t)
}

func TestRefiner_FallsBackOnGarbage(t *testing.T) {
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "sorry, I cannot help"}},
	}, nil)

	r := NewRefiner(client, "claude-haiku-4-5-20251001")
	w := r.Refine(context.Background(), "I want a shady route")

	assert.True(t, w.PreferShade)
	assert.Equal(t, 1.0, w.ShadePenalty)
}

func TestRefiner_NilClientIsKeywordOnly(t *testing.T) {
	var r *Refiner
	w := r.Refine(context.Background(), "scenic route")
	assert.True(t, w.PreferScenic)
}
