package db

// SchemaSQL contains the database schema initialization SQL.
// Embeddings live in the vector index, not here; the metadata store keeps
// everything else about an episode.
const SchemaSQL = `
    -- ==========================================================================
    -- EPISODE TABLE (Episodic Memory)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS episode SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS timestamp ON episode TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS task ON episode TYPE string;
    DEFINE FIELD IF NOT EXISTS context ON episode TYPE string;
    DEFINE FIELD IF NOT EXISTS reasoning ON episode TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS solution ON episode TYPE string;
    DEFINE FIELD IF NOT EXISTS solution_summary ON episode TYPE string;
    DEFINE FIELD IF NOT EXISTS outcome ON episode TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS success ON episode TYPE bool DEFAULT true;
    DEFINE FIELD IF NOT EXISTS episode_type ON episode TYPE string DEFAULT "decision";
    DEFINE FIELD IF NOT EXISTS tags ON episode TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS files_affected ON episode TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS lessons_learned ON episode TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS source_assistant ON episode TYPE string DEFAULT "unknown";
    DEFINE FIELD IF NOT EXISTS project_name ON episode TYPE string DEFAULT "default";

    -- Signal fields: owned by the store, mutated only via access accounting
    -- and explicit flag updates.
    DEFINE FIELD IF NOT EXISTS importance_score ON episode TYPE float DEFAULT 1.0;
    DEFINE FIELD IF NOT EXISTS access_count ON episode TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS last_accessed ON episode TYPE option<datetime>;
    DEFINE FIELD IF NOT EXISTS is_antipattern ON episode TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS is_critical ON episode TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS superseded_by ON episode TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS deprecation_reason ON episode TYPE option<string>;

    DEFINE INDEX IF NOT EXISTS episode_project ON episode FIELDS project_name;
    DEFINE INDEX IF NOT EXISTS episode_timestamp ON episode FIELDS timestamp;
    DEFINE INDEX IF NOT EXISTS episode_type ON episode FIELDS episode_type;
    DEFINE INDEX IF NOT EXISTS episode_tags ON episode FIELDS tags;

    -- ==========================================================================
    -- META_MEMORY TABLE (Consolidated Knowledge)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS meta_memory SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS created_at ON meta_memory TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON meta_memory TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS pattern ON meta_memory TYPE string;
    DEFINE FIELD IF NOT EXISTS pattern_summary ON meta_memory TYPE string;
    DEFINE FIELD IF NOT EXISTS lessons ON meta_memory TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS best_practices ON meta_memory TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS antipatterns ON meta_memory TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS exceptions ON meta_memory TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS edge_cases ON meta_memory TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS contexts ON meta_memory TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS technologies ON meta_memory TYPE array<string> DEFAULT [];
    -- Provenance only: source episodes may be deleted later, references stay.
    DEFINE FIELD IF NOT EXISTS source_episode_ids ON meta_memory TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS episode_count ON meta_memory TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS confidence ON meta_memory TYPE float DEFAULT 0.5;
    DEFINE FIELD IF NOT EXISTS coherence_score ON meta_memory TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS project_name ON meta_memory TYPE string DEFAULT "default";
    DEFINE FIELD IF NOT EXISTS tags ON meta_memory TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS access_count ON meta_memory TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS last_accessed ON meta_memory TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS meta_memory_project ON meta_memory FIELDS project_name;
    DEFINE INDEX IF NOT EXISTS meta_memory_created ON meta_memory FIELDS created_at;
`
