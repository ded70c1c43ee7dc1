package pipeline

// systemPrompt frames every analysis call. The corpus is Japanese patient
// communities, so prompts stay in Japanese for reliable label vocabulary.
const systemPrompt = `あなたは難病・希少疾患の患者会や支援団体を特定する専門家です。ウェブサイトの内容を分析し、関連する組織の情報をJSON形式で抽出してください。`

// matchPrompt asks whether page content relates to the disease or any of its
// search terms. %s: bulleted term list.
const matchPrompt = `以下のウェブサイトが以下の疾患または関連する用語に関連する患者会、家族会、または支援団体のサイトかどうかを判断してください。

検索対象の疾患・用語:
%s

判断基準:
1. サイトが上記の疾患や用語に関連しているか（完全一致でなくても関連していれば可）
2. 患者や家族向けの情報やサポートを提供しているか
3. 医療機関や製薬会社ではなく、患者会や支援団体のサイトか

JSON形式で回答してください:
{
    "is_match": true/false,
    "confidence": 0.0～1.0の数値,
    "matched_terms": ["一致した用語のリスト"],
    "reason": "判断理由を簡潔に"
}`

// strictMatchNote tightens matching when approximate matching is disabled
// for a disease.
const strictMatchNote = `注意: 近似一致は無効です。上記の疾患名・用語と明確に一致する場合のみ is_match を true にしてください。`

// extractPrompt asks for structured organization fields. %s: disease name
// (twice).
const extractPrompt = `以下のウェブサイトから「%s」に関連する組織の情報を抽出してください。

抽出する情報:
1. 組織名
2. 組織の種類（患者会/家族会/支援団体/医療機関/研究機関/政府機関/その他）
3. 連絡先情報（メール、電話番号など）
4. 主な活動内容
5. 対象疾患の特異性（このサイトは%sに特化しているか、複数の疾患を扱っているか）

JSON形式で回答してください:
{
    "name": "組織名",
    "organization_type": "患者会"/"家族会"/"支援団体"/"医療機関"/"研究機関"/"政府機関"/"その他",
    "contact_info": "連絡先情報",
    "activities": "主な活動内容",
    "disease_specificity": 0.0～1.0の数値（1.0が最も特異的）,
    "extraction_confidence": 0.0～1.0の数値（抽出の確信度）
}`

// verifyPrompt re-examines a stage-1 extraction against the same content.
// %s: disease name, then the extraction rendered as JSON.
const verifyPrompt = `以下のウェブサイトから抽出された「%s」に関連する組織の情報を検証してください。

抽出された情報:
%s

検証項目:
1. 組織名は正確か
2. 組織の種類は適切に分類されているか
3. 連絡先情報は正確か
4. 活動内容は正確に要約されているか
5. 対象疾患の特異性は適切に評価されているか

JSON形式で回答してください:
{
    "verification_result": true/false,
    "verification_score": 0.0～1.0の数値（検証の確信度）,
    "corrected_name": "修正された組織名（必要な場合）",
    "corrected_organization_type": "修正された組織の種類（必要な場合）",
    "corrected_contact_info": "修正された連絡先情報（必要な場合）",
    "corrected_activities": "修正された活動内容（必要な場合）",
    "corrected_disease_specificity": 0.0～1.0の数値（必要な場合）,
    "verification_notes": "検証に関する注記"
}`
