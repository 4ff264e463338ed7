// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	"strings"

	"github.com/mysqlbackup4go/backup4go/v4/export"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BACKUP4GO"

type optionKind int

const (
	kindString optionKind = iota
	kindBool
	kindInt
)

type optionFlag struct {
	key   string
	kind  optionKind
	usage string
}

var optionFlags = []optionFlag{
	{export.OptionDBName, kindString, "database to export or import into"},
	{export.OptionDBUsername, kindString, "database user"},
	{export.OptionDBPassword, kindString, "database password"},
	{export.OptionDBHost, kindString, "database host (default localhost)"},
	{export.OptionDBPort, kindInt, "database port (default 3306)"},
	{export.OptionJDBCConnectionString, kindString, "connection string, e.g. jdbc:mysql://host:3306/db"},
	{export.OptionJDBCDriverName, kindString, "database/sql driver name"},
	{export.OptionTempDir, kindString, "directory for generated files"},
	{export.OptionSQLFileName, kindString, "name of the generated script"},
	{export.OptionAddIfNotExists, kindBool, "add IF NOT EXISTS to CREATE TABLE (default true)"},
	{export.OptionDropTables, kindBool, "drop tables before creating them"},
	{export.OptionDeleteExistingData, kindBool, "delete existing rows before inserting"},
	{export.OptionPreserveGeneratedZip, kindBool, "keep the archive after the run"},
	{export.OptionPreserveGeneratedSQLFile, kindBool, "keep the script after the run"},
	{export.OptionArchiveFormat, kindString, "archive format: zip, gzip, xz or zstd"},
	{export.OptionEscapeBackslash, kindBool, "escape backslashes in string literals (default true); false only escapes quotes and line breaks, which corrupts values containing a backslash on replay"},
	{export.OptionTableFilter, kindString, "comma separated table filter rules, e.g. 'shop.*,!shop.tmp_*'"},
	{export.OptionEmailHost, kindString, "SMTP host"},
	{export.OptionEmailPort, kindInt, "SMTP port (default 25)"},
	{export.OptionEmailUsername, kindString, "SMTP user"},
	{export.OptionEmailPassword, kindString, "SMTP password"},
	{export.OptionEmailFrom, kindString, "sender address"},
	{export.OptionEmailTo, kindString, "recipient address"},
	{export.OptionEmailSubject, kindString, "mail subject"},
	{export.OptionEmailMessage, kindString, "mail body"},
	{export.OptionS3Bucket, kindString, "S3 bucket to upload the archive to"},
	{export.OptionS3Region, kindString, "S3 region"},
	{export.OptionS3Prefix, kindString, "S3 key prefix"},
	{export.OptionS3Endpoint, kindString, "S3 compatible endpoint"},
	{export.OptionS3AccessKey, kindString, "S3 access key"},
	{export.OptionS3SecretKey, kindString, "S3 secret key"},
	{export.OptionS3ForcePathStyle, kindBool, "use path style S3 addressing"},
}

// flagName turns DB_NAME into db-name.
func flagName(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", "-"))
}

// viperKey turns DB_NAME into db_name, which viper maps to BACKUP4GO_DB_NAME.
func viperKey(key string) string {
	return strings.ToLower(key)
}

func defineOptionFlags(flags *pflag.FlagSet) {
	for _, opt := range optionFlags {
		switch opt.kind {
		case kindBool:
			flags.Bool(flagName(opt.key), false, opt.usage)
		case kindInt:
			flags.Int(flagName(opt.key), 0, opt.usage)
		default:
			flags.String(flagName(opt.key), "", opt.usage)
		}
	}
}

func bindOptionFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, opt := range optionFlags {
		if err := v.BindPFlag(viperKey(opt.key), flags.Lookup(flagName(opt.key))); err != nil {
			return err
		}
		if err := v.BindEnv(viperKey(opt.key)); err != nil {
			return err
		}
	}
	return nil
}

// collectOptions merges flags, environment and config file, in this
// precedence, into the option map. Options set nowhere are left out so
// that their defaults apply.
func collectOptions(v *viper.Viper) map[string]string {
	options := make(map[string]string, len(optionFlags))
	for _, opt := range optionFlags {
		if !v.IsSet(viperKey(opt.key)) {
			continue
		}
		options[opt.key] = v.GetString(viperKey(opt.key))
	}
	return options
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AllowEmptyEnv(true)
	return v
}
