package sqlinline

const QUpsertJobRecord = `--sql 3f6b2a1c-9d84-4e1f-b7a2-51c0de98a4f7
insert into job_records (
  id, provider, provider_job_id, state, progress, message,
  video_url, poster_url, metadata, error_detail, updated_at
) values (
  $1::uuid, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11
)
on conflict (id) do update set
  state = excluded.state,
  progress = excluded.progress,
  message = excluded.message,
  video_url = excluded.video_url,
  poster_url = excluded.poster_url,
  metadata = excluded.metadata,
  error_detail = excluded.error_detail,
  updated_at = excluded.updated_at
where job_records.state not in ('completed', 'failed', 'error')
   or excluded.state in ('completed', 'failed', 'error');
`

const QSelectJobRecord = `--sql 8c41df02-5b3e-4a9d-9e17-3da6c2b08e55
select id, provider, provider_job_id, state, progress, message,
       video_url, poster_url, metadata, error_detail, updated_at
from job_records
where id = $1::uuid;
`

const QListJobRecords = `--sql b92e7c4a-1f06-48d3-a8b5-76e91d3c52a0
select id, provider, provider_job_id, state, progress, message,
       video_url, poster_url, metadata, error_detail, updated_at
from job_records
order by updated_at desc
limit 500;
`

const QPruneJobRecords = `--sql d50a83fe-7c29-4b61-92d4-08b5a7e634c9
delete from job_records
where state in ('completed', 'failed', 'error')
  and updated_at < now() - ($1::bigint * interval '1 second');
`
