package main

import (
	"github.com/poiesic/policygraph/core"
	"github.com/poiesic/policygraph/ingestion"
)

// samplePolicy is a small home-fire policy with a theft rider.
func samplePolicy() *ingestion.Document {
	return &ingestion.Document{
		PolicyVersion: &ingestion.PolicyVersionDoc{
			VersionID:     "LIG_HOME_FIRE_2025_V1",
			ProductCode:   "LIG_HOME_FIRE_2025",
			ProductName:   "주택화재보험",
			EffectiveDate: "2025-01-01",
		},
		SpecialClauses: []ingestion.SpecialClauseDoc{
			{Name: "도난위험 특별약관", Code: "RIDER_THEFT", Description: "도난으로 인한 손해를 보상하는 특별약관"},
		},
		Clauses: []ingestion.ClauseDoc{
			{
				ID: "제1조", Title: "용어의 정의", Type: core.ClauseTypeDefinition, Path: "제1조", ArticleNumber: 1,
				Text: "이 약관에서 사용하는 용어의 뜻은 다음과 같습니다. 1. 화재: 우연한 사고로 발생한 연소작용 2. 보험의 목적: 보험증권에 기재된 건물 및 가재도구",
				SubChunks: []ingestion.SubChunkDoc{
					{Text: "화재란 우연한 사고로 발생한 연소작용을 말합니다.", SemanticType: core.ClauseTypeDefinition},
					{Text: "보험의 목적은 보험증권에 기재된 건물 및 가재도구를 말합니다.", SemanticType: core.ClauseTypeDefinition},
				},
			},
			{
				ID: "제11조", Title: "보상하는 손해", Type: core.ClauseTypeCoverage, Path: "제11조", ArticleNumber: 11,
				Text:      "회사는 이 계약에 따라 보험의 목적에 대하여 다음 각호의 손해를 보상합니다. 1. 직접손해 2. 소방손해 3. 피난손해",
				RiskTypes: []string{"화재", "폭발"},
				SubChunks: []ingestion.SubChunkDoc{
					{Text: "화재로 보험의 목적에 생긴 직접손해를 보상합니다.", SemanticType: core.ClauseTypeCoverage},
					{Text: "화재 진압 과정에서 발생한 소방손해를 보상합니다.", SemanticType: core.ClauseTypeCoverage},
					{Text: "피난지에서 보험의 목적에 생긴 피난손해를 보상합니다.", SemanticType: core.ClauseTypeCoverage},
				},
			},
			{
				ID: "제12조", Title: "보상하지 않는 손해", Type: core.ClauseTypeExclusion, Path: "제12조", ArticleNumber: 12,
				Text:      "회사는 제11조에도 불구하고 다음의 손해는 보상하지 않습니다. 1. 계약자 또는 피보험자의 고의 또는 중대한 과실 2. 전쟁, 혁명, 내란으로 생긴 손해 3. 지진 또는 분화로 생긴 손해",
				RiskTypes: []string{"화재"},
				SubChunks: []ingestion.SubChunkDoc{
					{Text: "계약자 또는 피보험자의 고의 또는 중대한 과실로 생긴 손해는 보상하지 않습니다.", SemanticType: core.ClauseTypeExclusion},
					{Text: "전쟁, 혁명, 내란으로 생긴 손해는 보상하지 않습니다.", SemanticType: core.ClauseTypeExclusion},
					{Text: "지진 또는 분화로 생긴 손해는 보상하지 않습니다.", SemanticType: core.ClauseTypeExclusion},
				},
			},
			{
				ID: "제13조", Title: "손해의 통지", Type: core.ClauseTypeProcedure, Path: "제13조", ArticleNumber: 13,
				Text: "보험의 목적에 손해가 생긴 경우 계약자 또는 피보험자는 지체 없이 회사에 알려야 합니다.",
				SubChunks: []ingestion.SubChunkDoc{
					{Text: "손해가 생기면 지체 없이 회사에 알려야 합니다.", SemanticType: core.ClauseTypeProcedure},
				},
			},
			{
				ID: "도난위험특약_제1조", Title: "보상하는 손해", Type: core.ClauseTypeCoverage, Path: "도난위험특약>제1조", ArticleNumber: 1,
				SpecialClause: "도난위험 특별약관",
				Text:          "회사는 보험증권에 기재된 보험의 목적에 대하여 도난으로 인한 손해를 보상합니다.",
				RiskTypes:     []string{"도난"},
				SubChunks: []ingestion.SubChunkDoc{
					{Text: "도난으로 인한 직접적인 손해를 보상합니다.", SemanticType: core.ClauseTypeCoverage},
					{Text: "도난물품의 회수에 소요된 비용을 보상합니다.", SemanticType: core.ClauseTypeCoverage},
				},
			},
			{
				ID: "도난위험특약_제2조", Title: "보상하지 아니하는 손해", Type: core.ClauseTypeExclusion, Path: "도난위험특약>제2조", ArticleNumber: 2,
				SpecialClause: "도난위험 특별약관",
				Text:          "회사는 다음의 손해는 보상하지 아니합니다. 1. 계약자, 피보험자 또는 이들의 법정대리인의 고의 또는 중대한 과실로 생긴 손해",
				RiskTypes:     []string{"도난"},
				SubChunks: []ingestion.SubChunkDoc{
					{Text: "계약자, 피보험자 또는 법정대리인의 고의 또는 중대한 과실로 생긴 도난 손해는 보상하지 아니합니다.", SemanticType: core.ClauseTypeExclusion},
				},
			},
			{
				ID: "도난위험특약_제3조", Title: "자기부담금", Type: core.ClauseTypeDeductible, Path: "도난위험특약>제3조", ArticleNumber: 3,
				SpecialClause: "도난위험 특별약관",
				Text:          "회사가 보상할 손해액에서 증권에 기재된 자기부담금을 공제하고 보험금을 지급합니다.",
				RiskTypes:     []string{"도난"},
				SubChunks: []ingestion.SubChunkDoc{
					{Text: "손해액에서 자기부담금을 공제하고 보험금을 지급합니다.", SemanticType: core.ClauseTypeDeductible},
				},
			},
		},
		References: []ingestion.ReferenceDoc{
			{From: "제12조", To: "제11조", Label: "제11조에도 불구하고"},
			{From: "제11조", To: "제1조", Label: "보험의 목적"},
			{From: "도난위험특약_제3조", To: "도난위험특약_제1조", Label: "보상할 손해액"},
		},
	}
}
