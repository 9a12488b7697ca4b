// Package database 管理结果缓存库（Postgres）的连接池：
// 应用连接数与生命周期限制，提供就绪探针用的 Ping，
// 并可选地在后台周期性检查连通性。
package database
