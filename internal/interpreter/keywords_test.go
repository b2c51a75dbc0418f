package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMentionedColumns_LongerNameShadows(t *testing.T) {
	cols := []string{"salary", "salary_usd", "Team"}

	assert.Equal(t, []string{"salary_usd"}, mentionedColumns("salary_usd 삭제", cols))
	assert.Equal(t, []string{"salary", "salary_usd"}, mentionedColumns("salary랑 salary_usd 비교", cols))
	assert.Equal(t, []string{"Team"}, mentionedColumns("team 기준 정렬", cols))
	assert.Empty(t, mentionedColumns("아무 관련 없음", cols))
}

func TestNamedColumns_KeepsShadowedNames(t *testing.T) {
	cols := []string{"salary", "salary_usd", "Team"}

	assert.Equal(t, []string{"salary", "salary_usd"}, namedColumns("salary_usd 삭제", cols))
	assert.Equal(t, []string{"Team"}, namedColumns("team 기준", cols))
	assert.Empty(t, namedColumns("아무 관련 없음", cols))
}

func TestContainsKeyword_ASCIIBoundaries(t *testing.T) {
	assert.True(t, containsKeyword("ai 관련", "ai"))
	assert.True(t, containsKeyword("ai관련 데이터", "ai"))
	assert.True(t, containsKeyword("(ml)", "ml"))
	assert.False(t, containsKeyword("email 주소", "ai"))
	assert.False(t, containsKeyword("html", "ml"))
	assert.True(t, containsKeyword("머신러닝 직무", "머신러닝"))
}

func TestCleanCondition(t *testing.T) {
	cases := map[string]string{
		"에서 designer 포함된 데이터만": "designer",
		" 컬럼 삭제해줘":             "",
		" 내림차순으로 정렬":           "",
		"백엔드 엔지니어만":            "백엔드 엔지니어",
		"서울에서":                 "서울",
	}
	for in, want := range cases {
		assert.Equal(t, want, cleanCondition(in), in)
	}
}

func TestSortDirection(t *testing.T) {
	assert.True(t, sortDirection("salary 정렬"))
	assert.True(t, sortDirection("salary 오름차순 정렬"))
	assert.False(t, sortDirection("salary 내림차순 정렬"))
	assert.False(t, sortDirection("높은 순서로 salary 정렬"))
	assert.True(t, sortDirection("오름차순 내림차순 둘 다"))
}
