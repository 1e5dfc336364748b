package config

import (
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDSN assembles a MySQL DSN from the discrete DB_* variables.
func mysqlDSN(c *Config) string {
	dsn := mysql.NewConfig()
	dsn.User = c.DBUser
	dsn.Passwd = c.DBPassword
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	dsn.DBName = c.DBName
	dsn.ParseTime = true
	dsn.Timeout = 10 * time.Second
	return dsn.FormatDSN()
}
