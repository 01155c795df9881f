// Package migrations 内嵌各数据库方言的建表脚本，并通过 golang-migrate 执行。
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql mysql/*.sql
var files embed.FS

// MigrationsTable 记录迁移版本的表名
const MigrationsTable = "schema_migrations"

// Source 返回指定方言的迁移脚本源
func Source(dbType string) (source.Driver, error) {
	if dbType != "mysql" && dbType != "postgres" {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	sub, err := fs.Sub(files, dbType)
	if err != nil {
		return nil, fmt.Errorf("failed to get embedded migrations: %w", err)
	}

	d, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}
	return d, nil
}

// New 基于已打开的数据库连接创建迁移实例
func New(db *sql.DB, dbType string) (*migrate.Migrate, error) {
	src, err := Source(dbType)
	if err != nil {
		return nil, err
	}

	var driver database.Driver
	switch dbType {
	case "postgres":
		driver, err = migratepostgres.WithInstance(db, &migratepostgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: MigrationsTable})
	}
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", dbType, err)
	}

	return migrate.NewWithInstance("iofs", src, dbType, driver)
}
