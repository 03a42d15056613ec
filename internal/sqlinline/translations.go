package sqlinline

const QCreateTranslationsTable = `--sql aadf9011-73a7-4844-806a-aa901e3b05ce
create table if not exists translations (
    id bigint generated always as identity primary key,
    tenant text not null,
    catalog_number text not null,
    code text not null default '',
    status text not null default 'UNKNOWN',
    fingerprint text not null,
    translated jsonb not null,
    source_modified timestamptz not null,
    created_at timestamptz not null default now(),
    unique (tenant, catalog_number, fingerprint)
);
`

const QCreateTranslationsCatalogIndex = `--sql bda25605-1206-4745-8d07-1fb3b6dbba65
create index if not exists translations_catalog_number_idx
    on translations (catalog_number, created_at desc);
`

const QLookupTranslation = `--sql 29908d1f-5512-4481-9bf4-456947c495a5
select id, tenant, catalog_number, code, status, fingerprint, translated, source_modified, created_at
from translations
where tenant = $1
  and catalog_number = $2
  and fingerprint = $3
limit 1;
`

const QInsertTranslation = `--sql cc2606a8-44a7-4cc7-8261-29e523a53cdc
insert into translations (tenant, catalog_number, code, status, fingerprint, translated, source_modified)
values ($1, $2, $3, $4, $5, $6, $7)
on conflict (tenant, catalog_number, fingerprint) do nothing;
`

const QRecentTranslations = `--sql 953ae602-642f-4c22-ac6b-113a0fc67c39
select id, tenant, catalog_number, code, status, fingerprint, translated, source_modified, created_at
from translations
order by source_modified desc, id desc
limit $1;
`

const QTranslationsByCatalogNumber = `--sql bf3c16e6-c078-4d52-a2c4-d9decee54bdd
select id, tenant, catalog_number, code, status, fingerprint, translated, source_modified, created_at
from translations
where catalog_number = $1
order by created_at desc, id desc;
`

const QTranslationStats = `--sql 0b35ed65-7797-4f28-90b7-ef876be48e79
select
    count(*) as entries,
    count(distinct catalog_number) as catalog_numbers,
    max(source_modified) as latest_modified
from translations;
`
