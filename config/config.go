package config

//
// Copyright (c) 2019 ARM Limited.
//
// SPDX-License-Identifier: MIT
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//

import (
	"errors"
	"fmt"
	"io/ioutil"
	"net/url"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/PelionIoT/devicegrid/address"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/xsite"
)

const (
	DefaultRequestTimeoutMS  = 10000
	DefaultJournalEventLimit = 10000
)

const (
	BackoffNone        = "none"
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"
)

type YAMLConfig struct {
	Node             YAMLNode     `yaml:"node"`
	Members          []YAMLMember `yaml:"members"`
	RequestTimeoutMS uint64       `yaml:"requestTimeout"`
	XSite            YAMLXSite    `yaml:"xsite"`
	Journal          *YAMLJournal `yaml:"journal"`
	LogLevel         string       `yaml:"logLevel"`
}

type YAMLNode struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Site    string `yaml:"site"`
	Rack    string `yaml:"rack"`
	Machine string `yaml:"machine"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type YAMLMember struct {
	ID   string `yaml:"id"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type YAMLXSite struct {
	Backups []YAMLBackup `yaml:"backups"`
	Retry   YAMLRetry    `yaml:"retry"`
}

type YAMLBackup struct {
	Site        string           `yaml:"site"`
	URL         string           `yaml:"url"`
	Sync        bool             `yaml:"sync"`
	TimeoutMS   uint64           `yaml:"timeout"`
	TakeOffline *YAMLTakeOffline `yaml:"takeOffline"`
}

type YAMLTakeOffline struct {
	AfterFailures   int    `yaml:"afterFailures"`
	MinTimeToWaitMS uint64 `yaml:"minTimeToWait"`
}

type YAMLRetry struct {
	MaxRetries           int    `yaml:"maxRetries"`
	WaitBetweenRetriesMS uint64 `yaml:"waitBetweenRetries"`
	Backoff              string `yaml:"backoff"`
}

type YAMLJournal struct {
	DBFile     string `yaml:"db"`
	EventLimit uint64 `yaml:"eventLimit"`
}

func (ysc *YAMLConfig) LoadFromFile(file string) error {
	rawConfig, err := ioutil.ReadFile(file)

	if err != nil {
		return err
	}

	err = yaml.Unmarshal(rawConfig, ysc)

	if err != nil {
		return err
	}

	if len(ysc.Node.ID) == 0 {
		return errors.New("The node ID is empty")
	}

	if _, err := address.Parse(ysc.Node.ID); err != nil {
		return errors.New(fmt.Sprintf("%s is not a valid node ID: %v", ysc.Node.ID, err))
	}

	if !isValidPort(ysc.Node.Port) {
		return errors.New(fmt.Sprintf("%d is an invalid port for the node", ysc.Node.Port))
	}

	for _, member := range ysc.Members {
		if len(member.ID) == 0 {
			return errors.New(fmt.Sprintf("Member ID is empty"))
		}

		if _, err := address.Parse(member.ID); err != nil {
			return errors.New(fmt.Sprintf("%s is not a valid member ID: %v", member.ID, err))
		}

		if len(member.Host) == 0 {
			return errors.New(fmt.Sprintf("The host name is empty for member %s", member.ID))
		}

		if !isValidPort(member.Port) {
			return errors.New(fmt.Sprintf("%d is an invalid port to connect to member %s at %s", member.Port, member.ID, member.Host))
		}
	}

	if ysc.RequestTimeoutMS == 0 {
		ysc.RequestTimeoutMS = DefaultRequestTimeoutMS
	}

	sites := make(map[string]bool)

	for _, backup := range ysc.XSite.Backups {
		if len(backup.Site) == 0 {
			return errors.New("Backup site name is empty")
		}

		if sites[backup.Site] {
			return errors.New(fmt.Sprintf("Backup site %s is listed more than once", backup.Site))
		}

		sites[backup.Site] = true

		if u, err := url.Parse(backup.URL); err != nil || len(u.Host) == 0 {
			return errors.New(fmt.Sprintf("%s is an invalid url for backup site %s", backup.URL, backup.Site))
		}

		if backup.TakeOffline != nil && backup.TakeOffline.AfterFailures < 0 {
			return errors.New(fmt.Sprintf("takeOffline.afterFailures must not be negative for backup site %s", backup.Site))
		}
	}

	if ysc.XSite.Retry.MaxRetries < 0 {
		return errors.New("xsite.retry.maxRetries must not be negative")
	}

	switch ysc.XSite.Retry.Backoff {
	case "":
		ysc.XSite.Retry.Backoff = BackoffNone
	case BackoffNone, BackoffLinear, BackoffExponential:
	default:
		return errors.New(fmt.Sprintf("%s is not a valid backoff. Valid backoffs are none, linear and exponential", ysc.XSite.Retry.Backoff))
	}

	if ysc.Journal != nil {
		if len(ysc.Journal.DBFile) == 0 {
			return errors.New("The journal db file is empty")
		}

		ysc.Journal.DBFile = resolveFilePath(file, ysc.Journal.DBFile)

		if ysc.Journal.EventLimit == 0 {
			ysc.Journal.EventLimit = DefaultJournalEventLimit
		}
	}

	if len(ysc.LogLevel) != 0 && !LogLevelIsValid(ysc.LogLevel) {
		return errors.New(fmt.Sprintf("%s is not a valid log level", ysc.LogLevel))
	}

	SetLoggingLevel(ysc.LogLevel)

	return nil
}

// LocalAddress is only valid after a successful LoadFromFile
func (ysc *YAMLConfig) LocalAddress() address.Address {
	local, _ := address.Parse(ysc.Node.ID,
		address.WithName(ysc.Node.Name),
		address.WithSite(ysc.Node.Site),
		address.WithRack(ysc.Node.Rack),
		address.WithMachine(ysc.Node.Machine),
	)

	return local
}

func (ysc *YAMLConfig) RequestTimeout() time.Duration {
	return time.Millisecond * time.Duration(ysc.RequestTimeoutMS)
}

func (ysc *YAMLConfig) WaitBetweenRetries() time.Duration {
	return time.Millisecond * time.Duration(ysc.XSite.Retry.WaitBetweenRetriesMS)
}

func (ysc *YAMLConfig) Backups() []xsite.XSiteBackup {
	backups := make([]xsite.XSiteBackup, 0, len(ysc.XSite.Backups))

	for _, backup := range ysc.XSite.Backups {
		backups = append(backups, xsite.XSiteBackup{
			SiteName: backup.Site,
			Sync:     backup.Sync,
			Timeout:  time.Millisecond * time.Duration(backup.TimeoutMS),
		})
	}

	return backups
}

func (backup YAMLBackup) TakeOfflineConfig() xsite.TakeOfflineConfig {
	if backup.TakeOffline == nil {
		return xsite.TakeOfflineConfig{}
	}

	return xsite.TakeOfflineConfig{
		AfterFailures: backup.TakeOffline.AfterFailures,
		MinTimeToWait: time.Millisecond * time.Duration(backup.TakeOffline.MinTimeToWaitMS),
	}
}

func isValidPort(p int) bool {
	return p >= 0 && p < (1<<16)
}

func resolveFilePath(configFileLocation, file string) string {
	if filepath.IsAbs(file) {
		return file
	}

	return filepath.Join(filepath.Dir(configFileLocation), file)
}
