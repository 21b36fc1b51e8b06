package db

// postgresSchema mirrors the MySQL table the service was first deployed with:
// no uniqueness constraint, cleanup-then-insert keeps it consistent.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS rapper_performances (
	id                    BIGSERIAL PRIMARY KEY,
	rapper_name           VARCHAR(50)   NOT NULL,
	performance_date      DATE          NOT NULL,
	performance_time_text VARCHAR(100),
	venue                 VARCHAR(255)  NOT NULL,
	address               VARCHAR(255)  NOT NULL,
	price_presale         NUMERIC(10,2),
	price_regular         NUMERIC(10,2),
	price_vip             NUMERIC(10,2),
	purchase_url          VARCHAR(512)  NOT NULL,
	guests_json           JSONB,
	source                VARCHAR(32)   NOT NULL DEFAULT 'showstart',
	created_at            TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
	updated_at            TIMESTAMPTZ   NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_rapper_date ON rapper_performances (rapper_name, performance_date);
`

// sqliteSchema stores prices as TEXT so NUMERIC affinity never turns them into floats.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rapper_performances (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	rapper_name           TEXT     NOT NULL,
	performance_date      DATE     NOT NULL,
	performance_time_text TEXT,
	venue                 TEXT     NOT NULL,
	address               TEXT     NOT NULL,
	price_presale         TEXT,
	price_regular         TEXT,
	price_vip             TEXT,
	purchase_url          TEXT     NOT NULL,
	guests_json           TEXT,
	source                TEXT     NOT NULL DEFAULT 'showstart',
	created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_rapper_date ON rapper_performances (rapper_name, performance_date);
`

const selectColumns = `id, rapper_name, performance_date, performance_time_text, venue, address,
	price_presale, price_regular, price_vip, purchase_url, guests_json, source, created_at, updated_at`
