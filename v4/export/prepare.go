// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	tcontext "github.com/mysqlbackup4go/backup4go/v4/context"
	tf "github.com/pingcap/tidb-tools/pkg/table-filter"
	"go.uber.org/zap"
)

// prepareServerInfo detects the server. The version only feeds the script
// header so a failure is not fatal.
func prepareServerInfo(tctx *tcontext.Context, db Querier) ServerInfo {
	serverInfo, err := detectServerInfo(tctx, db)
	if err != nil {
		tctx.L().Warn("fail to detect server info", zap.Error(err))
		return ServerInfoUnknown
	}
	tctx.L().Debug("detected server", zap.Stringer("server", serverInfo))
	return serverInfo
}

// prepareCatalog lists the objects of database kept by tableFilter.
func prepareCatalog(tctx *tcontext.Context, db Querier, database string, tableFilter tf.Filter) (*Catalog, error) {
	if isSystemSchema(database) {
		tctx.L().Warn("dumping a system schema", zap.String("database", database))
	}
	tctx.L().Debug("list all the tables", zap.String("database", database))
	catalog, err := ListObjects(tctx, db, database)
	if err != nil {
		return nil, err
	}
	catalog = filterObjects(catalog, database, tableFilter)
	tctx.L().Info("catalog listed",
		zap.String("database", database),
		zap.Int("tables", len(catalog.Tables)),
		zap.Int("views", len(catalog.Views)))
	return catalog, nil
}
