package store

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"github.com/taskmind/taskmind/engine"
)

// RedisStore is the production Store backend. It namespaces every key
// under a caller-supplied prefix (default "taskmind") and uses three key
// families per workflow:
//
//	<prefix>:plan:<workflowID>              -> JSON-encoded engine.Plan
//	<prefix>:outputs:<workflowID>:order     -> list of task names, insertion order
//	<prefix>:outputs:<workflowID>:values     -> hash taskName -> output
//	<prefix>:memory:<workflowID>:<agent>    -> list of memory entries, oldest first
//
// Each workflow's keys are fully namespaced so many workflows can share
// one Redis instance without interfering with each other.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    engine.Logger
}

// RedisStoreOptions configures a RedisStore.
type RedisStoreOptions struct {
	Client    *redis.Client
	Namespace string // default "taskmind" when empty
	Logger    engine.Logger
}

// NewRedisStore wraps an existing *redis.Client. The caller owns the
// client's lifecycle (creation, TLS, pooling); this type only namespaces
// keys and implements the Store contract.
func NewRedisStore(opts RedisStoreOptions) *RedisStore {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "taskmind"
	}
	return &RedisStore{
		client:    opts.Client,
		namespace: namespace,
		logger:    engine.ResolveLogger(opts.Logger, "engine/store"),
	}
}

var _ Store = (*RedisStore)(nil)

func (r *RedisStore) planKey(workflowID engine.WorkflowID) string {
	return r.namespace + ":plan:" + string(workflowID)
}

func (r *RedisStore) outputOrderKey(workflowID engine.WorkflowID) string {
	return r.namespace + ":outputs:" + string(workflowID) + ":order"
}

func (r *RedisStore) outputValuesKey(workflowID engine.WorkflowID) string {
	return r.namespace + ":outputs:" + string(workflowID) + ":values"
}

func (r *RedisStore) memoryKey(workflowID engine.WorkflowID, agentName string) string {
	return r.namespace + ":memory:" + string(workflowID) + ":" + agentName
}

func (r *RedisStore) AddMemory(ctx context.Context, workflowID engine.WorkflowID, agentName, entry string) error {
	key := r.memoryKey(workflowID, agentName)
	if err := r.client.RPush(ctx, key, entry).Err(); err != nil {
		return newFailure("AddMemory", key, err)
	}
	return nil
}

func (r *RedisStore) LoadMemory(ctx context.Context, workflowID engine.WorkflowID, agentName string) ([]string, error) {
	key := r.memoryKey(workflowID, agentName)
	entries, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, newFailure("LoadMemory", key, err)
	}
	return entries, nil
}

func (r *RedisStore) SavePlan(ctx context.Context, workflowID engine.WorkflowID, plan engine.Plan) error {
	key := r.planKey(workflowID)
	data, err := json.Marshal(plan)
	if err != nil {
		return newFailure("SavePlan", key, err)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return newFailure("SavePlan", key, err)
	}
	return nil
}

func (r *RedisStore) LoadPlan(ctx context.Context, workflowID engine.WorkflowID) (*engine.Plan, bool, error) {
	key := r.planKey(workflowID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newFailure("LoadPlan", key, err)
	}
	var plan engine.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, false, newFailure("LoadPlan", key, err)
	}
	return &plan, true, nil
}

func (r *RedisStore) SaveTaskOutput(ctx context.Context, workflowID engine.WorkflowID, taskName, output string) error {
	orderKey := r.outputOrderKey(workflowID)
	valuesKey := r.outputValuesKey(workflowID)

	existed, err := r.client.HExists(ctx, valuesKey, taskName).Result()
	if err != nil {
		return newFailure("SaveTaskOutput", valuesKey, err)
	}
	if err := r.client.HSet(ctx, valuesKey, taskName, output).Err(); err != nil {
		return newFailure("SaveTaskOutput", valuesKey, err)
	}
	if !existed {
		if err := r.client.RPush(ctx, orderKey, taskName).Err(); err != nil {
			return newFailure("SaveTaskOutput", orderKey, err)
		}
	}
	return nil
}

func (r *RedisStore) LoadTaskOutputs(ctx context.Context, workflowID engine.WorkflowID) ([]TaskOutput, error) {
	orderKey := r.outputOrderKey(workflowID)
	valuesKey := r.outputValuesKey(workflowID)

	order, err := r.client.LRange(ctx, orderKey, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, newFailure("LoadTaskOutputs", orderKey, err)
	}
	values, err := r.client.HGetAll(ctx, valuesKey).Result()
	if err != nil && err != redis.Nil {
		return nil, newFailure("LoadTaskOutputs", valuesKey, err)
	}

	outputs := make([]TaskOutput, 0, len(order))
	for _, name := range order {
		outputs = append(outputs, TaskOutput{TaskName: name, Output: values[name]})
	}
	return outputs, nil
}

func (r *RedisStore) DeleteWorkflow(ctx context.Context, workflowID engine.WorkflowID) error {
	pattern := r.namespace + ":memory:" + string(workflowID) + ":*"
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return newFailure("DeleteWorkflow", pattern, err)
	}
	keys = append(keys, r.planKey(workflowID), r.outputOrderKey(workflowID), r.outputValuesKey(workflowID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return newFailure("DeleteWorkflow", string(workflowID), err)
	}
	return nil
}
