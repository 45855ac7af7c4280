package database

import (
	"database/sql"
	"fmt"
	"time"

	"sparepart-marketplace/config"

	_ "github.com/go-sql-driver/mysql"
)

// Connection pool limits.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 30 * time.Second
)

var DB *sql.DB

func InitDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}

	DB = db
	return nil
}

func CloseDB() {
	if DB != nil {
		DB.Close()
	}
}

// migrate bootstraps the schema. Order tables are owned here; the catalog
// and user tables belong to their own services and are only created so a
// standalone deployment has the foreign-key targets in place.
func migrate(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			phone VARCHAR(32),
			role ENUM('vehicle_owner', 'vendor', 'admin') NOT NULL DEFAULT 'vehicle_owner',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NULL ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS units (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			unit_name VARCHAR(64) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS shops (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			shop_name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			phone VARCHAR(32),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NULL ON UPDATE CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS spare_parts (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			shop_id BIGINT UNSIGNED NOT NULL,
			sparepart_name VARCHAR(255) NOT NULL,
			unit_id BIGINT UNSIGNED,
			price DECIMAL(10,2) NOT NULL,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NULL ON UPDATE CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP NULL,
			FOREIGN KEY (shop_id) REFERENCES shops(id),
			FOREIGN KEY (unit_id) REFERENCES units(id)
		)`,
		`CREATE TABLE IF NOT EXISTS spare_part_images (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			spare_part_id BIGINT UNSIGNED NOT NULL,
			image_url VARCHAR(512) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (spare_part_id) REFERENCES spare_parts(id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			total_amount DECIMAL(12,2) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NULL ON UPDATE CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			order_id BIGINT UNSIGNED NOT NULL,
			spare_part_id BIGINT UNSIGNED NOT NULL,
			quantity INT NOT NULL,
			price DECIMAL(10,2) NOT NULL,
			paid BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NULL ON UPDATE CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id),
			FOREIGN KEY (spare_part_id) REFERENCES spare_parts(id)
		)`,
		`CREATE TABLE IF NOT EXISTS order_item_statuses (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			order_item_id BIGINT UNSIGNED NOT NULL,
			status ENUM('pending', 'approved', 'declined', 'complete') NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (order_item_id) REFERENCES order_items(id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
