package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}

	migration := `
	CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL,
		surname    TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		password   TEXT NOT NULL
	);

	CREATE SEQUENCE IF NOT EXISTS account_number_seq START 1;

	CREATE TABLE IF NOT EXISTS accounts (
		account_number       BIGINT PRIMARY KEY,
		account_type         TEXT NOT NULL,
		account_sub_type     TEXT NOT NULL DEFAULT '',
		balance              NUMERIC(15,2) NOT NULL DEFAULT 0,
		interest_rate_credit NUMERIC(5,2),
		interest_rate_debit  NUMERIC(5,2),
		overdraft_limit      NUMERIC(15,2),
		is_active            BOOLEAN NOT NULL DEFAULT TRUE,
		date_opened          TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS account_users (
		account_number BIGINT NOT NULL REFERENCES accounts(account_number),
		user_id        BIGINT NOT NULL REFERENCES users(id),
		role           TEXT NOT NULL CHECK (role IN
			('primary_holder', 'joint_holder', 'secondary_holder', 'authorized_signatory')),
		PRIMARY KEY (account_number, user_id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id                       BIGSERIAL PRIMARY KEY,
		reference                UUID NOT NULL,
		amount                   NUMERIC(15,2) NOT NULL CHECK (amount > 0),
		running_balance          NUMERIC(15,2) NOT NULL,
		date_time                TIMESTAMPTZ NOT NULL,
		description              TEXT,
		type                     TEXT NOT NULL CHECK (type IN
			('deposit', 'withdrawal', 'transfer', 'fee')),
		sender_account_number    BIGINT NOT NULL REFERENCES accounts(account_number),
		recipient_account_number BIGINT NOT NULL REFERENCES accounts(account_number),
		direction                TEXT NOT NULL CHECK (direction IN ('in', 'out')),
		outcome                  TEXT NOT NULL CHECK (outcome IN ('success', 'fail'))
	);

	CREATE INDEX IF NOT EXISTS transactions_reference_idx ON transactions (reference);
	CREATE INDEX IF NOT EXISTS transactions_sender_idx ON transactions (sender_account_number, date_time);
	CREATE INDEX IF NOT EXISTS transactions_recipient_idx ON transactions (recipient_account_number, date_time);
	`

	if _, err := db.Exec(migration); err != nil {
		log.Fatalf("failed to execute migration: %v", err)
	}

	fmt.Println("Migration executed successfully")
}
