package sqlinline

const QCreateProviderTokensTable = `--sql e948caaa-30b4-4b5b-bf86-6b5c2a180437
create table if not exists provider_tokens (
    provider text primary key,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QSelectProviderToken = `--sql 0052b268-043c-4f6f-bc0f-7828cd147c02
select token
from provider_tokens
where provider = $1
limit 1;
`

const QUpsertProviderToken = `--sql d3067d93-e332-4cdb-95d7-731e93b2dae8
insert into provider_tokens (provider, token, properties, created_at, updated_at)
values ($1, $2, $3::jsonb, now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
