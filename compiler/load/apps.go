// Package load reads the external inputs the generator consumes: application
// listings, BigQuery view reference maps, custom namespace documents,
// metric-hub definitions and table schemas.
//
// Everything here is pure input handling. No generation logic is interleaved
// with fetching or parsing; a fetch failure is a single upstream error that
// aborts the run.
package load

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Channel is one release channel of an application.
type Channel struct {
	// Channel is the channel name (release, beta, nightly). May be empty for
	// single-channel apps.
	Channel string
	// Dataset is the BigQuery dataset user-facing views live in.
	Dataset string
	// SourceDataset is the dataset holding the stable tables the views read.
	SourceDataset string
}

// App is one application from the app listings service, with its
// non-deprecated channels.
type App struct {
	Name       string
	PrettyName string
	V1Name     string
	Owners     []string
	Channels   []Channel
}

// appListing mirrors one entry of the probe-info app listings JSON.
type appListing struct {
	AppName            string   `json:"app_name"`
	AppChannel         string   `json:"app_channel"`
	CanonicalAppName   string   `json:"canonical_app_name"`
	BQDatasetFamily    string   `json:"bq_dataset_family"`
	V1Name             string   `json:"v1_name"`
	NotificationEmails []string `json:"notification_emails"`
	Deprecated         bool     `json:"deprecated"`
}

// ParseAppListings parses the app listings JSON into one App per application.
// Canonical naming comes from the release channel when present, otherwise the
// first listed variant. Deprecated channels are skipped; applications whose
// channels are all deprecated are omitted. Output is sorted by app name so
// the result is independent of listing order.
func ParseAppListings(data []byte) ([]App, error) {
	var listings []appListing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("load: parsing app listings: %w", err)
	}

	byName := make(map[string][]appListing)
	for _, l := range listings {
		byName[l.AppName] = append(byName[l.AppName], l)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	apps := make([]App, 0, len(names))
	for _, name := range names {
		variants := byName[name]
		release := variants[0]
		for _, v := range variants {
			if v.AppChannel == "release" {
				release = v
				break
			}
		}

		var channels []Channel
		for _, v := range variants {
			if v.Deprecated {
				continue
			}
			// Release reads the app-level dataset which references the app id
			// specific one; other channels read the stable tables directly.
			dataset := v.BQDatasetFamily
			sourceDataset := v.BQDatasetFamily + "_stable"
			if v.AppChannel == "release" {
				dataset = strings.ReplaceAll(v.AppName, "-", "_")
				sourceDataset = v.BQDatasetFamily
			}
			channels = append(channels, Channel{
				Channel:       v.AppChannel,
				Dataset:       dataset,
				SourceDataset: sourceDataset,
			})
		}
		if len(channels) == 0 {
			continue
		}

		apps = append(apps, App{
			Name:       name,
			PrettyName: release.CanonicalAppName,
			V1Name:     release.V1Name,
			Owners:     release.NotificationEmails,
			Channels:   channels,
		})
	}
	return apps, nil
}

// ReleaseChannel returns the channel named "release", or the first channel.
func (a App) ReleaseChannel() Channel {
	for _, c := range a.Channels {
		if c.Channel == "release" {
			return c
		}
	}
	return a.Channels[0]
}
