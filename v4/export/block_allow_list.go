// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package export

import (
	"strings"

	"github.com/mysqlbackup4go/backup4go/v4/log"
	"github.com/pingcap/tidb-tools/pkg/filter"
	tf "github.com/pingcap/tidb-tools/pkg/table-filter"
	"go.uber.org/zap"
)

// ParseTableFilter parses comma separated table-filter rules such as
// "mydb.*,!mydb.audit_*". An empty string matches every object.
func ParseTableFilter(rules string) (tf.Filter, error) {
	var args []string
	for _, rule := range strings.Split(rules, ",") {
		if rule = strings.TrimSpace(rule); rule != "" {
			args = append(args, rule)
		}
	}
	if len(args) == 0 {
		args = []string{"*.*"}
	}
	f, err := tf.Parse(args)
	if err != nil {
		return nil, withStack(err)
	}
	return f, nil
}

// filterObjects drops the catalog entries of database rejected by tableFilter.
func filterObjects(catalog *Catalog, database string, tableFilter tf.Filter) *Catalog {
	if tableFilter == nil {
		return catalog
	}
	log.Debug("filter tables")
	filtered := &Catalog{}
	var ignored []string

	for _, table := range catalog.Tables {
		if tableFilter.MatchTable(database, table) {
			filtered.Tables = append(filtered.Tables, table)
		} else {
			ignored = append(ignored, table)
		}
	}
	for _, view := range catalog.Views {
		if tableFilter.MatchTable(database, view) {
			filtered.Views = append(filtered.Views, view)
		} else {
			ignored = append(ignored, view)
		}
	}

	if len(ignored) > 0 {
		log.Debug("ignore table", zap.String("database", database), zap.Strings("tables", ignored))
	}
	return filtered
}

func isSystemSchema(database string) bool {
	return filter.IsSystemSchema(strings.ToLower(database))
}
