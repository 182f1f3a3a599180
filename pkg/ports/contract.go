package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunThreadStoreContract runs a suite of tests to verify that a ThreadStore implementation
// adheres to the defined interface contract.
func RunThreadStoreContract(t *testing.T, store ThreadStore) {
	ctx := context.Background()
	threadID := "contract-test-thread-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(threadID).Apply(domain.Update{
			Messages: []domain.Message{domain.NewMessage(domain.RoleHuman, "write a poem")},
			Artifact: (*domain.Artifact)(nil).
				Append(domain.MarkdownContent{ContentHeader: domain.ContentHeader{Title: "Poem"}, FullMarkdown: "roses"}).
				Append(domain.CodeContent{Language: domain.LangHTML, Code: "<p>roses</p>"}),
			Title: domain.Ptr("Poem"),
		})

		err := store.Save(ctx, threadID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "Poem", loaded.Title)
		require.Len(t, loaded.Messages, 1)
		assert.Equal(t, "write a poem", loaded.Messages[0].Content)
		require.Equal(t, 2, loaded.Artifact.Len())
		assert.Equal(t, 2, loaded.Artifact.CurrentIndex)
		assert.Equal(t, domain.KindCode, loaded.Artifact.Current().Kind())
		assert.Equal(t, "roses", loaded.Artifact.Contents[0].Body())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, threadID, domain.NewState(threadID))
		require.NoError(t, err)

		err = store.Delete(ctx, threadID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound, "Load after Delete should return ErrThreadNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := threadID + "-1"
		id2 := threadID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1))
		_ = store.Save(ctx, id2, domain.NewState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		threads, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, threads, id1)
		assert.Contains(t, threads, id2)
	})
}

// RunMemoryStoreContract verifies a MemoryStore implementation.
func RunMemoryStoreContract(t *testing.T, store MemoryStore) {
	ctx := context.Background()
	ns := []string{domain.MemoriesNamespace, "assistant-" + time.Now().Format("150405.000")}

	t.Run("Get Missing", func(t *testing.T) {
		_, err := store.Get(ctx, ns, domain.ReflectionKey)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Put and Get", func(t *testing.T) {
		value := map[string]any{"styleRules": []any{"be brief"}, "content": []any{}}
		require.NoError(t, store.Put(ctx, ns, domain.ReflectionKey, value))

		item, err := store.Get(ctx, ns, domain.ReflectionKey)
		require.NoError(t, err)
		assert.Equal(t, domain.ReflectionKey, item.Key)
		assert.Equal(t, ns, item.Namespace)
		assert.Equal(t, []any{"be brief"}, item.Value["styleRules"])
		assert.False(t, item.UpdatedAt.IsZero())
	})

	t.Run("Namespaces Are Isolated", func(t *testing.T) {
		other := []string{domain.MemoriesNamespace, "someone-else"}
		_, err := store.Get(ctx, other, domain.ReflectionKey)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, ns, domain.ReflectionKey, map[string]any{"content": []any{"new"}}))
		item, err := store.Get(ctx, ns, domain.ReflectionKey)
		require.NoError(t, err)
		assert.Nil(t, item.Value["styleRules"])
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, ns, domain.ReflectionKey))
		_, err := store.Get(ctx, ns, domain.ReflectionKey)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, store.Delete(ctx, ns, domain.ReflectionKey), "deleting twice is not an error")
	})
}
