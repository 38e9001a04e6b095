// Copyright 2023 LiveKit, Inc.
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

// Package config holds the bitrate allocator's construction-time settings.
package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BitrateConfig mirrors the five configuration keys of the original
// bitrate controller; the yaml tags below are snake_case forms of those
// key names.
type BitrateConfig struct {
	// BWEChangeThresholdPct is the minimum relative change (%) in the last
	// reacted-to bandwidth estimate that triggers a new allocation cycle.
	BWEChangeThresholdPct int `yaml:"bwe_change_threshold_pct,omitempty"`

	// ThumbnailMaxHeight caps the height of candidate layers considered for
	// a non-selected (thumbnail) source.
	ThumbnailMaxHeight int `yaml:"thumbnail_max_height,omitempty"`

	// OnstagePreferredHeight is the height threshold defining "preferred"
	// quality for a selected source.
	OnstagePreferredHeight int `yaml:"onstage_preferred_height,omitempty"`

	// OnstagePreferredFrameRate is the minimum frame rate admitted for
	// selected-source layers above the preferred height.
	OnstagePreferredFrameRate float64 `yaml:"onstage_preferred_frame_rate,omitempty"`

	// TrustBWE gates whether the bandwidth estimate is used at all.
	TrustBWE bool `yaml:"trust_bwe,omitempty"`
}

// DefaultBitrateConfig holds the allocator's out-of-the-box defaults.
var DefaultBitrateConfig = BitrateConfig{
	BWEChangeThresholdPct:     15,
	ThumbnailMaxHeight:        180,
	OnstagePreferredHeight:    360,
	OnstagePreferredFrameRate: 30,
	TrustBWE:                  false,
}

// NewBitrateConfig decodes raw YAML on top of DefaultBitrateConfig. A nil or
// empty raw is equivalent to using the defaults unmodified.
func NewBitrateConfig(raw []byte) (*BitrateConfig, error) {
	conf := DefaultBitrateConfig

	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &conf); err != nil {
			return nil, errors.Wrap(err, "could not parse bitrate config")
		}
	}

	return &conf, nil
}
