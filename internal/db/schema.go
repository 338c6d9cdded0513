package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	username VARCHAR(100) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(50) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(30) NOT NULL,
	status VARCHAR(30) NOT NULL DEFAULT 'active',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_users_email (email),
	UNIQUE KEY uniq_users_username (username)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS companies (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	outstanding_amount DECIMAL(14,2) NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS customers (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	phone VARCHAR(50) NOT NULL DEFAULT '',
	company_id BIGINT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_customers_company (company_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS vehicles (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	registration_number VARCHAR(50) NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS drivers (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	phone VARCHAR(50) NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS driver_advances (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	driver_id BIGINT NOT NULL,
	amount DECIMAL(14,2) NOT NULL,
	date DATETIME NOT NULL,
	settled TINYINT(1) NOT NULL DEFAULT 0,
	description VARCHAR(500) NOT NULL DEFAULT '',
	KEY idx_advances_driver (driver_id),
	CONSTRAINT fk_advances_driver FOREIGN KEY (driver_id) REFERENCES drivers(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	customer_name VARCHAR(255) NOT NULL,
	customer_phone VARCHAR(50) NOT NULL,
	customer_id BIGINT NULL,
	company_id BIGINT NULL,
	vehicle_id BIGINT NULL,
	driver_id BIGINT NULL,
	source VARCHAR(100) NOT NULL,
	pickup_location VARCHAR(500) NOT NULL,
	drop_location VARCHAR(500) NOT NULL,
	journey_type VARCHAR(30) NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	tariff_rate DECIMAL(14,2) NOT NULL DEFAULT 0,
	total_amount DECIMAL(14,2) NOT NULL DEFAULT 0,
	advance_received DECIMAL(14,2) NOT NULL DEFAULT 0,
	balance DECIMAL(14,2) NOT NULL DEFAULT 0,
	status VARCHAR(30) NOT NULL DEFAULT 'booked',
	billed TINYINT(1) NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	KEY idx_bookings_start (start_date),
	KEY idx_bookings_status (status),
	KEY idx_bookings_driver (driver_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS booking_status_history (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	status VARCHAR(30) NOT NULL,
	changed_by VARCHAR(255) NOT NULL,
	changed_at DATETIME NOT NULL,
	KEY idx_history_booking (booking_id),
	CONSTRAINT fk_history_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS booking_expenses (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	type VARCHAR(30) NOT NULL,
	amount DECIMAL(14,2) NOT NULL,
	description VARCHAR(500) NOT NULL,
	receipt VARCHAR(500) NULL,
	created_at DATETIME NOT NULL,
	KEY idx_expenses_booking (booking_id),
	CONSTRAINT fk_expenses_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS booking_duty_slips (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	path VARCHAR(500) NOT NULL,
	uploaded_by VARCHAR(255) NOT NULL,
	uploaded_at DATETIME NOT NULL,
	description VARCHAR(500) NOT NULL DEFAULT '',
	KEY idx_duty_slips_booking (booking_id),
	CONSTRAINT fk_duty_slips_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS booking_payments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	amount DECIMAL(14,2) NOT NULL,
	comments VARCHAR(500) NOT NULL DEFAULT '',
	collected_by VARCHAR(255) NOT NULL DEFAULT '',
	paid_on DATETIME NOT NULL,
	KEY idx_booking_payments_booking (booking_id),
	CONSTRAINT fk_booking_payments_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS payments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	entity_type VARCHAR(20) NOT NULL,
	entity_id BIGINT NOT NULL,
	amount DECIMAL(14,2) NOT NULL,
	type VARCHAR(20) NOT NULL,
	date DATETIME NOT NULL,
	description VARCHAR(500) NOT NULL DEFAULT '',
	related_advance_id BIGINT NULL,
	booking_id BIGINT NULL,
	driver_payment_mode VARCHAR(20) NULL,
	fuel_quantity DECIMAL(14,3) NULL,
	fuel_rate DECIMAL(14,2) NULL,
	computed_amount DECIMAL(14,2) NULL,
	distance_km DECIMAL(14,2) NULL,
	mileage DECIMAL(14,2) NULL,
	settled TINYINT(1) NOT NULL DEFAULT 0,
	settled_at DATETIME NULL,
	created_at DATETIME NOT NULL,
	KEY idx_payments_date (date),
	KEY idx_payments_booking (booking_id, entity_type)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// EnsureSchema creates every table the service needs when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
