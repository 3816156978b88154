// Copyright 2026 The Guildboard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(context.Background(), Config{Enabled: false, ServiceName: "guildboard"})
	require.NoError(t, err)

	ctx, span := tr.Start(context.Background(), "authz.decide")
	assert.NotNil(t, ctx)
	span.End()

	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestSampler_Rate(t *testing.T) {
	cases := []struct {
		rate float64
		root string
	}{
		{1, "root:AlwaysOnSampler"},
		{2, "root:AlwaysOnSampler"},
		{0.25, "root:TraceIDRatioBased{0.25}"},
		{0, "root:TraceIDRatioBased{0}"},
	}
	for _, tc := range cases {
		desc := sampler(tc.rate).Description()
		assert.Contains(t, desc, "ParentBased{")
		assert.Contains(t, desc, tc.root, "rate %v", tc.rate)
	}
}
