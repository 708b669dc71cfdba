package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create swagger_sources table
			CREATE TABLE swagger_sources (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				swagger_url TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- Create api_definitions table
			CREATE TABLE api_definitions (
				id UUID PRIMARY KEY,
				swagger_source_id UUID NOT NULL REFERENCES swagger_sources(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				path TEXT NOT NULL,
				method VARCHAR(10) NOT NULL CHECK (method IN ('GET', 'POST', 'PUT', 'PATCH', 'DELETE')),
				description TEXT,
				request_schema TEXT,
				response_schema TEXT,
				parameters TEXT,
				requires_auth BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_api_definitions_source ON api_definitions(swagger_source_id);

			-- Create authentication_settings table
			CREATE TABLE authentication_settings (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				token_endpoint TEXT NOT NULL,
				username VARCHAR(255) NOT NULL,
				password TEXT NOT NULL,
				grant_type VARCHAR(50),
				client_id VARCHAR(255),
				client_secret TEXT,
				scope VARCHAR(255),
				additional_parameters TEXT,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_used_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_authentication_settings_name ON authentication_settings(name);

			-- Create policies table
			CREATE TABLE policies (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				authentication_setting_id UUID REFERENCES authentication_settings(id),
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_executed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_policies_active ON policies(active);
			CREATE INDEX idx_policies_name ON policies(name);

			-- Create rules table
			CREATE TABLE rules (
				id UUID PRIMARY KEY,
				policy_id UUID NOT NULL REFERENCES policies(id) ON DELETE CASCADE,
				api_definition_id UUID REFERENCES api_definitions(id),
				name VARCHAR(255) NOT NULL,
				description TEXT,
				condition TEXT,
				action_json TEXT,
				rule_order INT NOT NULL DEFAULT 0,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_rules_policy ON rules(policy_id);
			CREATE INDEX idx_rules_order ON rules(policy_id, rule_order);

			-- Create policy_schedules table
			CREATE TABLE policy_schedules (
				id UUID PRIMARY KEY,
				policy_id UUID NOT NULL REFERENCES policies(id) ON DELETE CASCADE,
				cron_expression VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				next_run_at TIMESTAMP WITH TIME ZONE,
				last_run_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_policy_schedules_policy ON policy_schedules(policy_id);
			CREATE INDEX idx_policy_schedules_due ON policy_schedules(active, next_run_at);

			-- Create execution_logs table
			CREATE TABLE execution_logs (
				id UUID PRIMARY KEY,
				policy_id UUID NOT NULL,
				rule_id UUID,
				status VARCHAR(50) NOT NULL,
				input TEXT,
				output TEXT,
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE NOT NULL,
				duration_ms BIGINT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_execution_logs_policy ON execution_logs(policy_id);
			CREATE INDEX idx_execution_logs_started_at ON execution_logs(started_at);
		`,
	}
}
